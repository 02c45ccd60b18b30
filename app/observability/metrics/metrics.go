package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	RagRequestsTotal          metric.Int64Counter
	RagCacheHitsTotal         metric.Int64Counter
	RagCacheMissesTotal       metric.Int64Counter
	RetrievalDurationSeconds  metric.Float64Histogram
	GenerationDurationSeconds metric.Float64Histogram
	EmbeddingCacheHitsTotal   metric.Int64Counter
	RateLimitRejectionsTotal  metric.Int64Counter
	AgentRunsTotal            metric.Int64Counter
	AgentFailuresTotal        metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("TravelRAG")
		var err error
		m := &AppMetrics{}

		m.RagRequestsTotal, err = meter.Int64Counter(
			"rag_requests_total",
			metric.WithDescription("Total number of RAG queries handled"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create rag_requests_total: %v", err)
		}

		m.RagCacheHitsTotal, err = meter.Int64Counter(
			"rag_cache_hits_total",
			metric.WithDescription("RAG answers served from the response cache"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create rag_cache_hits_total: %v", err)
		}

		m.RagCacheMissesTotal, err = meter.Int64Counter(
			"rag_cache_misses_total",
			metric.WithDescription("RAG queries that missed the response cache"),
			metric.WithUnit("{miss}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create rag_cache_misses_total: %v", err)
		}

		m.RetrievalDurationSeconds, err = meter.Float64Histogram(
			"retrieval_duration_seconds",
			metric.WithDescription("Duration of the retrieval phase in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create retrieval_duration_seconds: %v", err)
		}

		m.GenerationDurationSeconds, err = meter.Float64Histogram(
			"generation_duration_seconds",
			metric.WithDescription("Duration of the generation phase in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create generation_duration_seconds: %v", err)
		}

		m.EmbeddingCacheHitsTotal, err = meter.Int64Counter(
			"embedding_cache_hits_total",
			metric.WithDescription("Embedding lookups served from cache"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create embedding_cache_hits_total: %v", err)
		}

		m.RateLimitRejectionsTotal, err = meter.Int64Counter(
			"rate_limit_rejections_total",
			metric.WithDescription("Requests rejected by admission control"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create rate_limit_rejections_total: %v", err)
		}

		m.AgentRunsTotal, err = meter.Int64Counter(
			"agent_runs_total",
			metric.WithDescription("Total specialized agent executions"),
			metric.WithUnit("{run}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create agent_runs_total: %v", err)
		}

		m.AgentFailuresTotal, err = meter.Int64Counter(
			"agent_failures_total",
			metric.WithDescription("Specialized agent executions that failed"),
			metric.WithUnit("{run}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create agent_failures_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
