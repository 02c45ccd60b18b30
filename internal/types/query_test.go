package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		wantErr bool
	}{
		{"valid", Query{Text: "hotels in lisbon"}, false},
		{"empty text", Query{Text: "   "}, true},
		{"too long", Query{Text: strings.Repeat("x", MaxQueryChars+1)}, true},
		{"unknown category", Query{Text: "q", Filter: OfferingFilter{Category: "castle"}}, true},
		{"min above max tier", Query{Text: "q", Filter: OfferingFilter{MinPrice: TierLuxury, MaxPrice: TierBudget}}, true},
		{"max unspecified allows any min", Query{Text: "q", Filter: OfferingFilter{MinPrice: TierLuxury}}, false},
		{"bad history role", Query{Text: "q", History: []ConversationTurn{{Role: "system", Content: "x"}}}, true},
		{"valid history", Query{Text: "q", History: []ConversationTurn{{Role: RoleUser, Content: "x"}, {Role: RoleAssistant, Content: "y"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueryNormalized(t *testing.T) {
	q := Query{
		Text: "  Hotels IN Lisbon ",
		Filter: OfferingFilter{
			SearchText: " Rooftop Bar ",
			Locations:  []string{"Baixa", " alfama ", ""},
		},
		Preferences: []string{"Quiet", "", " boutique "},
	}

	n := q.Normalized()
	assert.Equal(t, "hotels in lisbon", n.Text)
	assert.Equal(t, "rooftop bar", n.Filter.SearchText)
	assert.Equal(t, []string{"alfama", "baixa"}, n.Filter.Locations)
	assert.Equal(t, []string{"boutique", "quiet"}, n.Preferences)

	// The receiver is untouched.
	assert.Equal(t, "  Hotels IN Lisbon ", q.Text)
}
