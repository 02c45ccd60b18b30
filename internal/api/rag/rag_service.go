// Package rag implements the question answering pipeline: fingerprint,
// cache lookup, embedding, parallel retrieval, merge, prompt assembly and
// generation.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travel-rag/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-rag/config"
	"github.com/FACorreiaa/go-travel-rag/internal/api/embedding"
	generativeAI "github.com/FACorreiaa/go-travel-rag/internal/api/generative_ai"
	"github.com/FACorreiaa/go-travel-rag/internal/api/offering"
	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

// Service answers one travel query end to end.
type Service interface {
	Answer(ctx context.Context, q types.Query) (*types.RAGAnswer, error)

	// AnswerWithProgress behaves like Answer and additionally reports stage
	// milestones through emit. A nil emit disables progress reporting.
	AnswerWithProgress(ctx context.Context, q types.Query, emit func(types.StreamEvent)) (*types.RAGAnswer, error)
}

type ServiceImpl struct {
	embedder  embedding.Embedder
	repo      offering.Repository
	generator generativeAI.Generator
	cache     ResponseCache
	cfg       config.RAGConfig
	logger    *slog.Logger
}

var _ Service = (*ServiceImpl)(nil)

func NewServiceImpl(
	embedder embedding.Embedder,
	repo offering.Repository,
	generator generativeAI.Generator,
	cache ResponseCache,
	cfg config.RAGConfig,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		embedder:  embedder,
		repo:      repo,
		generator: generator,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *ServiceImpl) Answer(ctx context.Context, q types.Query) (*types.RAGAnswer, error) {
	return s.AnswerWithProgress(ctx, q, nil)
}

func (s *ServiceImpl) AnswerWithProgress(ctx context.Context, q types.Query, emit func(types.StreamEvent)) (*types.RAGAnswer, error) {
	ctx, span := otel.Tracer("RAGService").Start(ctx, "Answer", trace.WithAttributes(
		attribute.Int("query.length", len(q.Text)),
		attribute.Bool("query.bypass_cache", q.BypassCache),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Answer"))

	if err := q.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid query")
		return nil, err
	}

	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	m := metrics.Get()
	m.RagRequestsTotal.Add(ctx, 1)

	fingerprint := Fingerprint(q)
	span.SetAttributes(attribute.String("query.fingerprint", fingerprint))

	if !q.BypassCache {
		if cached, found := s.cache.Get(ctx, fingerprint); found {
			m.RagCacheHitsTotal.Add(ctx, 1)
			l.DebugContext(ctx, "Serving answer from response cache",
				slog.String("fingerprint", fingerprint))
			span.SetAttributes(attribute.Bool("cache.hit", true))
			span.SetStatus(codes.Ok, "cache hit")

			out := *cached
			out.Metadata.CachedResults = true
			out.Metadata.RetrievalDurationMs = 0
			out.Metadata.GenerationDurationMs = 0
			out.Metadata.TotalDurationMs = time.Since(start).Milliseconds()
			return &out, nil
		}
		m.RagCacheMissesTotal.Add(ctx, 1)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	sendEvent(emit, types.StreamEvent{Type: types.EventTypeStageStarted, Stage: types.StageRetrieval})

	retrievalStart := time.Now()
	queryVec, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		sendErrorEvent(emit, types.StageRetrieval, "query embedding failed")
		return nil, err
	}

	merged, err := s.retrieve(ctx, l, q, queryVec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		sendErrorEvent(emit, types.StageRetrieval, "all retrieval sources failed")
		return nil, err
	}
	retrievalDuration := time.Since(retrievalStart)
	m.RetrievalDurationSeconds.Record(ctx, retrievalDuration.Seconds())
	span.SetAttributes(attribute.Int("retrieval.count", len(merged)))

	sendEvent(emit, types.StreamEvent{
		Type:  types.EventTypeStageCompleted,
		Stage: types.StageRetrieval,
		Data:  map[string]interface{}{"source_count": len(merged)},
	})
	sendEvent(emit, types.StreamEvent{Type: types.EventTypeStageStarted, Stage: types.StageGeneration})

	generationStart := time.Now()
	prompt := buildPrompt(q, merged.Offerings(), s.cfg.MaxHistoryTurns, s.cfg.MaxContextChars)
	answerText, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		sendErrorEvent(emit, types.StageGeneration, "answer generation failed")
		return nil, err
	}
	generationDuration := time.Since(generationStart)
	m.GenerationDurationSeconds.Record(ctx, generationDuration.Seconds())

	sendEvent(emit, types.StreamEvent{Type: types.EventTypeStageCompleted, Stage: types.StageGeneration})

	answer := &types.RAGAnswer{
		Answer:  answerText,
		Sources: merged.Offerings(),
		Metadata: types.AnswerMetadata{
			RetrievalDurationMs:  retrievalDuration.Milliseconds(),
			GenerationDurationMs: generationDuration.Milliseconds(),
			TotalDurationMs:      time.Since(start).Milliseconds(),
			SourceCount:          len(merged),
		},
		CreatedAt: time.Now().UTC(),
	}

	// Only complete answers are cached; partial failures never are.
	s.cache.Set(ctx, fingerprint, answer)

	l.InfoContext(ctx, "Answered query",
		slog.Int("sources", len(merged)),
		slog.Int64("retrieval_ms", answer.Metadata.RetrievalDurationMs),
		slog.Int64("generation_ms", answer.Metadata.GenerationDurationMs))
	span.SetStatus(codes.Ok, "answered")
	return answer, nil
}

// retrieve fans out to the vector retriever and, when structured predicates
// are present, the filter retriever. One source failing degrades to the
// other's results; the run fails only when every attempted source fails.
func (s *ServiceImpl) retrieve(ctx context.Context, l *slog.Logger, q types.Query, queryVec []float32) (types.RetrievalResult, error) {
	type outcome struct {
		source string
		result types.RetrievalResult
		err    error
	}

	outcomes := make(chan outcome, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		result, err := s.repo.SearchBySimilarity(ctx, queryVec, q.Filter.Category, s.cfg.TopK, s.cfg.SimilarityThreshold)
		outcomes <- outcome{source: "vector", result: result, err: err}
	}()

	if !q.Filter.Empty() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.repo.SearchByFilters(ctx, q.Filter, types.SortRelevance, s.cfg.TopK)
			outcomes <- outcome{source: "filter", result: result, err: err}
		}()
	}

	wg.Wait()
	close(outcomes)

	var (
		results   []types.RetrievalResult
		attempted int
		failed    int
	)
	for out := range outcomes {
		attempted++
		if out.err != nil {
			failed++
			l.WarnContext(ctx, "Retrieval source failed, degrading",
				slog.String("source", out.source),
				slog.Any("error", out.err))
			continue
		}
		results = append(results, out.result)
	}

	if failed == attempted {
		return nil, fmt.Errorf("%w: %d of %d sources failed", types.ErrRetrievalFailure, failed, attempted)
	}

	return types.MergeRetrievalResults(s.cfg.MaxResults, results...), nil
}

func sendEvent(emit func(types.StreamEvent), event types.StreamEvent) {
	if emit == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.EventID = uuid.New().String()
	emit(event)
}

func sendErrorEvent(emit func(types.StreamEvent), stage, message string) {
	sendEvent(emit, types.StreamEvent{Type: types.EventTypeError, Stage: stage, Error: message})
}
