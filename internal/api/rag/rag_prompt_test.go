package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

func TestBuildPrompt_IncludesContextAndQuestion(t *testing.T) {
	q := types.Query{
		Text:        "where should I stay?",
		Preferences: []string{"quiet", "boutique"},
		History: []types.ConversationTurn{
			{Role: types.RoleUser, Content: "I'm visiting Lisbon"},
			{Role: types.RoleAssistant, Content: "Lisbon is lovely in spring."},
		},
	}
	offerings := []types.Offering{
		{Name: "Hotel Aurora", Category: types.CategoryLodging, Location: "Lisbon", Rating: 4.6, PriceTier: types.TierLuxury, Description: "Boutique hotel in Alfama"},
	}

	prompt := buildPrompt(q, offerings, 6, 8000)

	assert.Contains(t, prompt, "Hotel Aurora")
	assert.Contains(t, prompt, "quiet, boutique")
	assert.Contains(t, prompt, "I'm visiting Lisbon")
	assert.Contains(t, prompt, "where should I stay?")
}

func TestBuildPrompt_TrimsHistory(t *testing.T) {
	var history []types.ConversationTurn
	for i := 0; i < 10; i++ {
		history = append(history, types.ConversationTurn{Role: types.RoleUser, Content: "turn"})
	}
	history[0].Content = "oldest turn"

	prompt := buildPrompt(types.Query{Text: "q", History: history}, nil, 2, 8000)
	assert.NotContains(t, prompt, "oldest turn")
	assert.Equal(t, 2, strings.Count(prompt, "user: turn"))
}

func TestFormatContext_EmptyAndBudget(t *testing.T) {
	assert.Contains(t, formatContext(nil, 1000), "no matching catalog entries")

	offerings := []types.Offering{
		{Name: "First", Category: types.CategoryTour, Description: strings.Repeat("a", 200)},
		{Name: "Second", Category: types.CategoryTour, Description: strings.Repeat("b", 200)},
	}
	out := formatContext(offerings, 250)
	assert.Contains(t, out, "First")
	assert.NotContains(t, out, "Second")
}
