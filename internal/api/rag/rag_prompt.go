package rag

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

// buildPrompt assembles the generation prompt from the query, its
// conversation history and the retrieved offerings. The catalog context is
// truncated to maxContextChars and history to the last maxHistoryTurns
// turns so the prompt stays inside the model's working window.
func buildPrompt(q types.Query, offerings []types.Offering, maxHistoryTurns, maxContextChars int) string {
	var b strings.Builder

	b.WriteString("You are a travel recommendation assistant. Answer the traveler's question using only the catalog entries below. ")
	b.WriteString("Recommend specific entries by name and explain briefly why each fits. ")
	b.WriteString("If no entry fits, say so honestly instead of inventing options.\n\n")

	if len(q.Preferences) > 0 {
		b.WriteString("Traveler preferences: ")
		b.WriteString(strings.Join(q.Preferences, ", "))
		b.WriteString("\n\n")
	}

	if turns := lastTurns(q.History, maxHistoryTurns); len(turns) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range turns {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("Catalog entries:\n")
	b.WriteString(formatContext(offerings, maxContextChars))
	b.WriteString("\n")

	b.WriteString("Question: ")
	b.WriteString(q.Text)
	b.WriteString("\n")

	return b.String()
}

func lastTurns(history []types.ConversationTurn, max int) []types.ConversationTurn {
	if max <= 0 || len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}

// formatContext renders offerings as numbered entries, stopping at the
// character budget on an entry boundary so no entry is cut mid-sentence.
func formatContext(offerings []types.Offering, maxChars int) string {
	if len(offerings) == 0 {
		return "(no matching catalog entries were found)\n"
	}

	var b strings.Builder
	for i, o := range offerings {
		entry := formatOffering(i+1, o)
		if maxChars > 0 && b.Len()+len(entry) > maxChars && b.Len() > 0 {
			break
		}
		b.WriteString(entry)
	}
	return b.String()
}

func formatOffering(n int, o types.Offering) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s (%s", n, o.Name, o.Category)
	if o.Location != "" {
		fmt.Fprintf(&b, ", %s", o.Location)
	}
	b.WriteString(")")
	if o.Rating > 0 {
		fmt.Fprintf(&b, " rated %.1f", o.Rating)
	}
	if o.PriceTier != types.TierUnspecified {
		fmt.Fprintf(&b, ", %s price tier", o.PriceTier)
	}
	b.WriteString("\n")
	if o.Description != "" {
		fmt.Fprintf(&b, "   %s\n", o.Description)
	}
	if len(o.Features) > 0 {
		fmt.Fprintf(&b, "   Features: %s\n", strings.Join(o.Features, ", "))
	}
	return b.String()
}
