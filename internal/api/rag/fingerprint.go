package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

// Fingerprint derives the response-cache key for a query. Two queries that
// normalize to the same canonical form always produce the same fingerprint,
// so caching is insensitive to whitespace, casing and filter-value order.
// BypassCache is deliberately excluded.
func Fingerprint(q types.Query) string {
	n := q.Normalized()

	var b strings.Builder
	b.WriteString("text=")
	b.WriteString(n.Text)
	b.WriteString("|category=")
	b.WriteString(string(n.Filter.Category))
	b.WriteString("|search=")
	b.WriteString(n.Filter.SearchText)
	b.WriteString("|locations=")
	b.WriteString(strings.Join(n.Filter.Locations, ","))
	fmt.Fprintf(&b, "|price=%d-%d|rating=%g", n.Filter.MinPrice, n.Filter.MaxPrice, n.Filter.MinRating)
	b.WriteString("|prefs=")
	b.WriteString(strings.Join(n.Preferences, ","))
	b.WriteString("|history=")
	for _, turn := range n.History {
		b.WriteString(string(turn.Role))
		b.WriteString(":")
		b.WriteString(strings.ToLower(strings.TrimSpace(turn.Content)))
		b.WriteString(";")
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
