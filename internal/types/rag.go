package types

import "time"

// AnswerMetadata carries the timing and provenance facts attached to every
// RAG answer. Cache hits report near-zero retrieval/generation time with
// CachedResults set.
type AnswerMetadata struct {
	RetrievalDurationMs  int64 `json:"retrieval_duration_ms"`
	GenerationDurationMs int64 `json:"generation_duration_ms"`
	TotalDurationMs      int64 `json:"total_duration_ms"`
	CachedResults        bool  `json:"cached_results"`
	SourceCount          int   `json:"source_count"`
}

// RAGAnswer is the final artifact of one pipeline run: the generated reply
// plus the ordered offerings it was grounded on.
type RAGAnswer struct {
	Answer    string         `json:"answer"`
	Sources   []Offering     `json:"sources"`
	Metadata  AnswerMetadata `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}
