package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/go-travel-rag/config"
	"github.com/FACorreiaa/go-travel-rag/internal/api/offering"
	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

// Agent is one specialized worker inside an orchestration session. Each
// agent owns a single offering category and searches it independently.
type Agent interface {
	Name() string
	Category() types.OfferingCategory
	Run(ctx context.Context, q types.Query, queryVec []float32) (types.RetrievalResult, error)
}

type categoryAgent struct {
	category types.OfferingCategory
	repo     offering.Repository
	cfg      config.OrchestratorConfig
	logger   *slog.Logger
}

var _ Agent = (*categoryAgent)(nil)

// NewCategoryAgents builds one agent per offering category over the shared
// repository.
func NewCategoryAgents(repo offering.Repository, cfg config.OrchestratorConfig, logger *slog.Logger) []Agent {
	agents := make([]Agent, 0, len(types.AllCategories))
	for _, category := range types.AllCategories {
		agents = append(agents, &categoryAgent{
			category: category,
			repo:     repo,
			cfg:      cfg,
			logger:   logger,
		})
	}
	return agents
}

func (a *categoryAgent) Name() string {
	return fmt.Sprintf("%s-agent", a.category)
}

func (a *categoryAgent) Category() types.OfferingCategory {
	return a.category
}

func (a *categoryAgent) Run(ctx context.Context, q types.Query, queryVec []float32) (types.RetrievalResult, error) {
	result, err := a.repo.SearchBySimilarity(ctx, queryVec, a.category, a.cfg.AgentTopK, a.cfg.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Name(), err)
	}
	a.logger.DebugContext(ctx, "Agent search complete",
		slog.String("agent", a.Name()),
		slog.Int("results", len(result)))
	return result, nil
}
