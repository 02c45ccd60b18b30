package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

func TestFingerprint_NormalizationInsensitive(t *testing.T) {
	a := types.Query{
		Text: "  Quiet Hotels in Lisbon ",
		Filter: types.OfferingFilter{
			Locations: []string{"Alfama", "Baixa"},
		},
		Preferences: []string{"Boutique", "Rooftop"},
	}
	b := types.Query{
		Text: "quiet hotels in lisbon",
		Filter: types.OfferingFilter{
			Locations: []string{"baixa", "alfama"},
		},
		Preferences: []string{"rooftop", "boutique"},
	}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_BypassCacheExcluded(t *testing.T) {
	a := types.Query{Text: "hotels"}
	b := types.Query{Text: "hotels", BypassCache: true}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_DistinguishesSemantics(t *testing.T) {
	base := types.Query{Text: "hotels in lisbon"}

	variants := []types.Query{
		{Text: "hotels in porto"},
		{Text: "hotels in lisbon", Filter: types.OfferingFilter{Category: types.CategoryLodging}},
		{Text: "hotels in lisbon", Filter: types.OfferingFilter{MinRating: 4}},
		{Text: "hotels in lisbon", Preferences: []string{"budget"}},
		{Text: "hotels in lisbon", History: []types.ConversationTurn{{Role: types.RoleUser, Content: "earlier question"}}},
	}

	seen := map[string]bool{Fingerprint(base): true}
	for _, v := range variants {
		fp := Fingerprint(v)
		assert.False(t, seen[fp], "fingerprint collision for %+v", v)
		seen[fp] = true
	}
}
