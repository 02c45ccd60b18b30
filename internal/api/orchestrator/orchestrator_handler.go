package orchestrator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-travel-rag/internal/api"
	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

type HandlerImpl struct {
	service Service
	logger  *slog.Logger
}

func NewHandlerImpl(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{service: service, logger: logger}
}

// Run handles POST /chat/query: one synchronous orchestration session.
func (h *HandlerImpl) Run(w http.ResponseWriter, r *http.Request) {
	var q types.Query
	if err := api.DecodeJSONBody(w, r, &q); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Run(r.Context(), q)
	if err != nil {
		api.ErrorResponseFromErr(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// Stream handles POST /chat/stream: an orchestration session delivered as
// server-sent events, ending with exactly one terminal end event.
func (h *HandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	ctx := r.Context()

	var q types.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		h.writeSSEError(w, "Invalid request body")
		return
	}

	streamResp, err := h.service.RunStreamed(ctx, q)
	if err != nil {
		h.writeSSEError(w, "Invalid request")
		return
	}
	defer streamResp.Cancel()

	h.logger.InfoContext(ctx, "Started orchestration stream")

	for {
		select {
		case event, ok := <-streamResp.Stream:
			if !ok {
				h.logger.InfoContext(ctx, "Orchestration stream closed")
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				h.logger.ErrorContext(ctx, "Failed to marshal event", slog.Any("error", err))
				continue
			}

			fmt.Fprintf(w, "id: %s\n", event.EventID)
			fmt.Fprintf(w, "event: %s\n", event.Type)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()

		case <-ctx.Done():
			h.logger.InfoContext(ctx, "Client disconnected")
			return
		}
	}
}

// writeSSEError reports a failure before the session started. The stream
// still terminates with a single end event.
func (h *HandlerImpl) writeSSEError(w http.ResponseWriter, errorMsg string) {
	events := []types.StreamEvent{
		{
			Type:      types.EventTypeError,
			Error:     errorMsg,
			Timestamp: time.Now(),
			EventID:   uuid.New().String(),
		},
		{
			Type:      types.EventTypeEnd,
			IsFinal:   true,
			Timestamp: time.Now(),
			EventID:   uuid.New().String(),
		},
	}
	for _, event := range events {
		data, _ := json.Marshal(event)
		fmt.Fprintf(w, "id: %s\n", event.EventID)
		fmt.Fprintf(w, "event: %s\n", event.Type)
		fmt.Fprintf(w, "data: %s\n\n", data)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
