package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxQueryChars bounds the raw query text accepted at the boundary. Matches
// the embedding service's input limit so an admitted query can always be
// embedded.
const MaxQueryChars = 8000

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ConversationTurn is one prior exchange supplied with a query. The core
// never persists turns; history rides on the request.
type ConversationTurn struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp,omitempty"`
}

// Query is a single user request against the recommendation engine. It is
// validated once at the boundary; internal components trust its shape.
type Query struct {
	Text        string             `json:"text"`
	Filter      OfferingFilter     `json:"filter,omitempty"`
	History     []ConversationTurn `json:"history,omitempty"`
	Preferences []string           `json:"preferences,omitempty"`
	BypassCache bool               `json:"bypass_cache,omitempty"`
}

// Validate rejects malformed queries before they reach retrieval or
// generation. Returns ErrInvalidInput-wrapped errors.
func (q *Query) Validate() error {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return fmt.Errorf("%w: query text is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > MaxQueryChars {
		return fmt.Errorf("%w: query text exceeds %d characters", ErrInvalidInput, MaxQueryChars)
	}
	if q.Filter.Category != "" && !q.Filter.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, q.Filter.Category)
	}
	if q.Filter.MinPrice > q.Filter.MaxPrice && q.Filter.MaxPrice != TierUnspecified {
		return fmt.Errorf("%w: min price tier above max", ErrInvalidInput)
	}
	for _, role := range q.History {
		if role.Role != RoleUser && role.Role != RoleAssistant {
			return fmt.Errorf("%w: unknown history role %q", ErrInvalidInput, role.Role)
		}
	}
	return nil
}

// Normalized returns the canonical form used for fingerprinting: trimmed,
// lower-cased text and sorted filter values. History and preferences do not
// participate in the cache key beyond their normalized text, so equal
// requests fingerprint equally.
func (q Query) Normalized() Query {
	out := q
	out.Text = strings.ToLower(strings.TrimSpace(q.Text))

	out.Filter.SearchText = strings.ToLower(strings.TrimSpace(q.Filter.SearchText))
	out.Filter.Locations = make([]string, 0, len(q.Filter.Locations))
	for _, loc := range q.Filter.Locations {
		if loc = strings.ToLower(strings.TrimSpace(loc)); loc != "" {
			out.Filter.Locations = append(out.Filter.Locations, loc)
		}
	}
	sort.Strings(out.Filter.Locations)

	out.Preferences = make([]string, 0, len(q.Preferences))
	for _, p := range q.Preferences {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out.Preferences = append(out.Preferences, p)
		}
	}
	sort.Strings(out.Preferences)
	return out
}
