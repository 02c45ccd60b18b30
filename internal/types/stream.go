package types

import (
	"context"
	"time"
)

// StreamEvent is a discrete, ordered progress notification delivered to one
// caller while a long-running request is in flight.
type StreamEvent struct {
	Type      string      `json:"type"`
	Stage     string      `json:"stage,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	EventID   string      `json:"event_id"`
	IsFinal   bool        `json:"is_final,omitempty"`
}

// Stream event vocabulary. Fixed; extended only by adding variants.
const (
	EventTypeStageStarted   = "stage-started"
	EventTypeStageProgress  = "stage-progress"
	EventTypeStageCompleted = "stage-completed"
	EventTypeError          = "error"
	EventTypeEnd            = "end"
)

// Stage names used by the pipeline and orchestrator.
const (
	StageOrchestration = "orchestration"
	StageAgents        = "agents"
	StageMerge         = "merge"
	StageSynthesis     = "synthesis"
	StageRetrieval     = "retrieval"
	StageGeneration    = "generation"
)

// StreamingResponse wraps a progress event channel handed to the transport
// layer together with its cancel handle.
type StreamingResponse struct {
	Stream <-chan StreamEvent
	Cancel context.CancelFunc
}
