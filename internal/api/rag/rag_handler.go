package rag

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

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

// Query handles POST /rag/query: one full pipeline run, JSON in and out.
func (h *HandlerImpl) Query(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RAGHandler").Start(r.Context(), "Query")
	defer span.End()
	r = r.WithContext(ctx)

	var q types.Query
	if err := api.DecodeJSONBody(w, r, &q); err != nil {
		span.SetStatus(codes.Error, "invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	answer, err := h.service.Answer(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		api.ErrorResponseFromErr(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "answered")
	api.WriteJSONResponse(w, r, http.StatusOK, answer)
}
