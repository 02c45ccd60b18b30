package types

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OfferingCategory is the service category of a bookable travel offering.
type OfferingCategory string

const (
	CategoryLodging   OfferingCategory = "lodging"
	CategoryDining    OfferingCategory = "dining"
	CategoryTour      OfferingCategory = "tour"
	CategoryTransport OfferingCategory = "transport"
)

// AllCategories lists every offering category, one orchestration agent each.
var AllCategories = []OfferingCategory{
	CategoryLodging,
	CategoryDining,
	CategoryTour,
	CategoryTransport,
}

func (c OfferingCategory) Valid() bool {
	switch c {
	case CategoryLodging, CategoryDining, CategoryTour, CategoryTransport:
		return true
	}
	return false
}

// PriceTier is an ordinal price classification; higher means pricier.
type PriceTier int

const (
	TierUnspecified PriceTier = iota
	TierBudget
	TierMid
	TierLuxury
	TierPremium
)

var tierNames = map[PriceTier]string{
	TierBudget:  "budget",
	TierMid:     "mid",
	TierLuxury:  "luxury",
	TierPremium: "premium",
}

func (t PriceTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unspecified"
}

// ParsePriceTier maps a tier label to its ordinal; unknown labels map to
// TierUnspecified so malformed filters degrade to "no constraint".
func ParsePriceTier(s string) PriceTier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "budget":
		return TierBudget
	case "mid", "midrange", "mid-range":
		return TierMid
	case "luxury":
		return TierLuxury
	case "premium":
		return TierPremium
	}
	return TierUnspecified
}

// Offering is a travel-service entity owned by the external catalog store.
// Read-only from the core's perspective.
type Offering struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    OfferingCategory `json:"category"`
	Location    string           `json:"location"`
	Latitude    float64          `json:"latitude,omitempty"`
	Longitude   float64          `json:"longitude,omitempty"`
	Rating      float64          `json:"rating"`
	PriceTier   PriceTier        `json:"price_tier"`
	Features    []string         `json:"features,omitempty"`
	Phone       string           `json:"phone,omitempty"`
	Website     string           `json:"website,omitempty"`
	Embedding   []float32        `json:"-"`
	CreatedAt   time.Time        `json:"created_at,omitempty"`
}

// ScoredOffering pairs an offering with its retrieval score.
type ScoredOffering struct {
	Offering Offering `json:"offering"`
	Score    float64  `json:"score"`
}

// RetrievalResult is an ordered, score-descending sequence of scored
// offerings produced by one retriever for one query.
type RetrievalResult []ScoredOffering

// MergeRetrievalResults deduplicates offerings by ID across retriever
// outputs, keeping the highest score per offering, and returns the merged
// list sorted by score descending with ID ascending as the tie-break. The
// output is deterministic regardless of input order. A non-positive limit
// means no cap.
func MergeRetrievalResults(limit int, results ...RetrievalResult) RetrievalResult {
	best := make(map[uuid.UUID]ScoredOffering)
	for _, result := range results {
		for _, so := range result {
			if cur, ok := best[so.Offering.ID]; !ok || so.Score > cur.Score {
				best[so.Offering.ID] = so
			}
		}
	}

	merged := make(RetrievalResult, 0, len(best))
	for _, so := range best {
		merged = append(merged, so)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Offering.ID.String() < merged[j].Offering.ID.String()
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// Offerings strips the scores, preserving order.
func (r RetrievalResult) Offerings() []Offering {
	out := make([]Offering, len(r))
	for i, so := range r {
		out[i] = so.Offering
	}
	return out
}

// SortOrder selects FilterRetriever result ordering.
type SortOrder string

const (
	SortRelevance  SortOrder = "relevance"
	SortNameAsc    SortOrder = "name_asc"
	SortNameDesc   SortOrder = "name_desc"
	SortRatingDesc SortOrder = "rating_desc"
	SortNewest     SortOrder = "newest"
)

// NormalizeSortOrder falls back to relevance for unrecognized values.
func NormalizeSortOrder(s SortOrder) SortOrder {
	switch s {
	case SortNameAsc, SortNameDesc, SortRatingDesc, SortNewest:
		return s
	}
	return SortRelevance
}

// OfferingFilter is the conjunction of structured predicates accepted by the
// FilterRetriever. Zero values mean "no constraint".
type OfferingFilter struct {
	Category    OfferingCategory `json:"category,omitempty"`
	SearchText  string           `json:"search_text,omitempty"`
	Locations   []string         `json:"locations,omitempty"`
	MinPrice    PriceTier        `json:"min_price,omitempty"`
	MaxPrice    PriceTier        `json:"max_price,omitempty"`
	MinRating   float64          `json:"min_rating,omitempty"`
}

// Empty reports whether no predicate is set, in which case the RAG pipeline
// skips structured retrieval entirely.
func (f OfferingFilter) Empty() bool {
	return f.Category == "" && f.SearchText == "" && len(f.Locations) == 0 &&
		f.MinPrice == TierUnspecified && f.MaxPrice == TierUnspecified && f.MinRating == 0
}
