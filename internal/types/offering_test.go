package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func so(id uuid.UUID, score float64) ScoredOffering {
	return ScoredOffering{Offering: Offering{ID: id}, Score: score}
}

func TestMergeRetrievalResults_KeepsMaxScorePerID(t *testing.T) {
	shared := uuid.New()
	other := uuid.New()

	a := RetrievalResult{so(shared, 0.6), so(other, 0.5)}
	b := RetrievalResult{so(shared, 0.9)}

	merged := MergeRetrievalResults(0, a, b)
	require.Len(t, merged, 2)
	assert.Equal(t, shared, merged[0].Offering.ID)
	assert.Equal(t, 0.9, merged[0].Score)
	assert.Equal(t, other, merged[1].Offering.ID)
}

func TestMergeRetrievalResults_OrderIndependent(t *testing.T) {
	a := RetrievalResult{so(uuid.New(), 0.7), so(uuid.New(), 0.3)}
	b := RetrievalResult{so(uuid.New(), 0.5)}

	ab := MergeRetrievalResults(0, a, b)
	ba := MergeRetrievalResults(0, b, a)
	assert.Equal(t, ab, ba)
}

func TestMergeRetrievalResults_TieBreaksByID(t *testing.T) {
	x := so(uuid.New(), 0.5)
	y := so(uuid.New(), 0.5)

	merged := MergeRetrievalResults(0, RetrievalResult{x, y})
	require.Len(t, merged, 2)
	assert.Less(t, merged[0].Offering.ID.String(), merged[1].Offering.ID.String())
}

func TestMergeRetrievalResults_Limit(t *testing.T) {
	var r RetrievalResult
	for i := 0; i < 10; i++ {
		r = append(r, so(uuid.New(), float64(i)))
	}

	merged := MergeRetrievalResults(3, r)
	require.Len(t, merged, 3)
	assert.Equal(t, 9.0, merged[0].Score)
	assert.Equal(t, 7.0, merged[2].Score)
}

func TestMergeRetrievalResults_Empty(t *testing.T) {
	assert.Empty(t, MergeRetrievalResults(5))
	assert.Empty(t, MergeRetrievalResults(5, RetrievalResult{}, nil))
}

func TestNormalizeSortOrder(t *testing.T) {
	assert.Equal(t, SortRatingDesc, NormalizeSortOrder(SortRatingDesc))
	assert.Equal(t, SortRelevance, NormalizeSortOrder("garbage"))
	assert.Equal(t, SortRelevance, NormalizeSortOrder(""))
}

func TestParsePriceTier(t *testing.T) {
	assert.Equal(t, TierBudget, ParsePriceTier("Budget"))
	assert.Equal(t, TierMid, ParsePriceTier("mid-range"))
	assert.Equal(t, TierUnspecified, ParsePriceTier("cheap"))
}

func TestOfferingFilter_Empty(t *testing.T) {
	assert.True(t, OfferingFilter{}.Empty())
	assert.False(t, OfferingFilter{Category: CategoryDining}.Empty())
	assert.False(t, OfferingFilter{MinRating: 4}.Empty())
	assert.False(t, OfferingFilter{Locations: []string{"lisbon"}}.Empty())
}
