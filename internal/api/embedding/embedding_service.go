// Package embedding turns free text into vectors via the OpenAI embeddings
// API, with an in-process cache in front so repeated queries never pay for
// a second upstream call.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	gocache "github.com/patrickmn/go-cache"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travel-rag/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-rag/config"
	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

// Embedder is the vectorization dependency the retrieval side consumes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// openaiEmbedder is the subset of the OpenAI client we use, extracted so
// tests can stand in for the upstream API.
type openaiEmbedder interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// ServiceImpl calls the embeddings API and caches results by content hash.
type ServiceImpl struct {
	client   openaiEmbedder
	logger   *slog.Logger
	cfg      config.EmbeddingConfig
	cache    *gocache.Cache
	maxItems int
}

var _ Embedder = (*ServiceImpl)(nil)

// NewServiceImpl creates the embedding service.
func NewServiceImpl(client *openai.Client, cfg config.EmbeddingConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		client:   client,
		logger:   logger,
		cfg:      cfg,
		cache:    gocache.New(cfg.CacheTTL, cfg.CacheTTL/2),
		maxItems: cfg.CacheMaxItems,
	}
}

// cacheKey hashes the input so arbitrarily long text maps to a fixed-size
// key and raw user text never sits in the cache index.
func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed returns the vector for text, serving from cache when the exact same
// text was embedded before. Inputs over the configured size are rejected
// before any upstream call.
func (s *ServiceImpl) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := otel.Tracer("EmbeddingService").Start(ctx, "Embed", trace.WithAttributes(
		attribute.Int("text.length", len(text)),
	))
	defer span.End()

	if text == "" {
		span.SetStatus(codes.Error, "empty input")
		return nil, fmt.Errorf("%w: embedding input is empty", types.ErrInvalidInput)
	}
	if len([]rune(text)) > s.cfg.MaxInputChars {
		span.SetStatus(codes.Error, "input too large")
		return nil, fmt.Errorf("%w: embedding input exceeds %d characters", types.ErrInputTooLarge, s.cfg.MaxInputChars)
	}

	key := cacheKey(text)
	if cached, found := s.cache.Get(key); found {
		if vec, ok := cached.([]float32); ok {
			metrics.Get().EmbeddingCacheHitsTotal.Add(ctx, 1)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			span.SetStatus(codes.Ok, "cache hit")
			return vec, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(s.cfg.Model),
		Dimensions: s.cfg.Dimensions,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream embedding call failed")
		s.logger.ErrorContext(ctx, "Embedding request failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", types.ErrEmbeddingFailure, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		span.SetStatus(codes.Error, "upstream returned no vector")
		return nil, fmt.Errorf("%w: upstream returned no vector", types.ErrEmbeddingFailure)
	}

	vec := resp.Data[0].Embedding
	if s.cfg.Dimensions > 0 && len(vec) != s.cfg.Dimensions {
		span.SetStatus(codes.Error, "dimension mismatch")
		return nil, fmt.Errorf("%w: expected %d dimensions, got %d", types.ErrEmbeddingFailure, s.cfg.Dimensions, len(vec))
	}

	if s.maxItems <= 0 || s.cache.ItemCount() < s.maxItems {
		s.cache.Set(key, vec, gocache.DefaultExpiration)
	}

	span.SetStatus(codes.Ok, "embedded")
	return vec, nil
}
