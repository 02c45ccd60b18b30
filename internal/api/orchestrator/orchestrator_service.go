// Package orchestrator runs one specialized agent per offering category in
// parallel, merges what they find and synthesizes a single reply. Individual
// agent failures degrade the result; only a total wipeout fails the session.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travel-rag/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-rag/config"
	"github.com/FACorreiaa/go-travel-rag/internal/api/embedding"
	generativeAI "github.com/FACorreiaa/go-travel-rag/internal/api/generative_ai"
	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

// Service coordinates one multi-agent recommendation session.
type Service interface {
	// Run executes the session synchronously.
	Run(ctx context.Context, q types.Query) (*types.OrchestrationResult, error)

	// RunStreamed starts the session in the background and returns a stream
	// of progress events ending in exactly one terminal end event carrying
	// the result.
	RunStreamed(ctx context.Context, q types.Query) (*types.StreamingResponse, error)
}

type ServiceImpl struct {
	agents    []Agent
	embedder  embedding.Embedder
	generator generativeAI.Generator
	cfg       config.OrchestratorConfig
	logger    *slog.Logger
}

var _ Service = (*ServiceImpl)(nil)

func NewServiceImpl(
	agents []Agent,
	embedder embedding.Embedder,
	generator generativeAI.Generator,
	cfg config.OrchestratorConfig,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		agents:    agents,
		embedder:  embedder,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *ServiceImpl) Run(ctx context.Context, q types.Query) (*types.OrchestrationResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return s.run(ctx, q, nil), nil
}

func (s *ServiceImpl) RunStreamed(ctx context.Context, q types.Query) (*types.StreamingResponse, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	emitter := NewEmitter(runCtx, 16)

	go func() {
		var result *types.OrchestrationResult
		defer func() {
			if r := recover(); r != nil {
				s.logger.ErrorContext(runCtx, "Orchestration run panicked", slog.Any("panic", r))
				result = &types.OrchestrationResult{
					Success:  false,
					Message:  "Something went wrong while processing your request. Please retry shortly.",
					Partners: []types.Offering{},
				}
			}
			emitter.End(result)
		}()
		result = s.run(runCtx, q, emitter)
	}()

	return &types.StreamingResponse{Stream: emitter.Events(), Cancel: cancel}, nil
}

func (s *ServiceImpl) run(ctx context.Context, q types.Query, emitter *Emitter) *types.OrchestrationResult {
	ctx, span := otel.Tracer("Orchestrator").Start(ctx, "Run", trace.WithAttributes(
		attribute.Int("agents.count", len(s.agents)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Run"))

	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	emit(emitter, types.StreamEvent{Type: types.EventTypeStageStarted, Stage: types.StageOrchestration})

	queryVec, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		l.ErrorContext(ctx, "Query embedding failed, aborting session", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		emit(emitter, types.StreamEvent{Type: types.EventTypeError, Stage: types.StageOrchestration, Error: "query analysis failed"})
		return &types.OrchestrationResult{
			Success:  false,
			Message:  "We couldn't analyze your request. Please retry shortly.",
			Partners: []types.Offering{},
			Summary:  types.ExecutionSummary{FailedAgents: len(s.agents), TotalDuration: time.Since(start)},
		}
	}

	emit(emitter, types.StreamEvent{Type: types.EventTypeStageStarted, Stage: types.StageAgents})
	runs := s.runAgents(ctx, q, queryVec, emitter)

	var (
		results   []types.RetrievalResult
		succeeded int
	)
	for _, run := range runs {
		if run.Success {
			succeeded++
			results = append(results, run.Results)
		}
	}
	span.SetAttributes(attribute.Int("agents.succeeded", succeeded))

	m := metrics.Get()
	for _, run := range runs {
		attrs := metric.WithAttributes(attribute.String("agent", run.AgentName))
		m.AgentRunsTotal.Add(ctx, 1, attrs)
		if !run.Success {
			m.AgentFailuresTotal.Add(ctx, 1, attrs)
		}
	}

	if succeeded == 0 {
		l.WarnContext(ctx, "Every agent failed", slog.Int("agents", len(runs)))
		span.SetStatus(codes.Error, "all agents failed")
		emit(emitter, types.StreamEvent{Type: types.EventTypeError, Stage: types.StageAgents, Error: "all agents failed"})
		return &types.OrchestrationResult{
			Success:      false,
			Message:      "None of our partner searches completed. Please retry shortly.",
			Partners:     []types.Offering{},
			AgentResults: runs,
			Summary: types.ExecutionSummary{
				FailedAgents:  len(runs),
				TotalDuration: time.Since(start),
			},
		}
	}

	merged := types.MergeRetrievalResults(s.cfg.MaxPartners, results...)
	emit(emitter, types.StreamEvent{
		Type:  types.EventTypeStageCompleted,
		Stage: types.StageMerge,
		Data:  map[string]interface{}{"partner_count": len(merged)},
	})

	emit(emitter, types.StreamEvent{Type: types.EventTypeStageStarted, Stage: types.StageSynthesis})
	reply, message := s.synthesize(ctx, l, q, merged.Offerings())
	emit(emitter, types.StreamEvent{Type: types.EventTypeStageCompleted, Stage: types.StageSynthesis})

	result := &types.OrchestrationResult{
		Success:      true,
		Message:      message,
		Reply:        reply,
		Partners:     merged.Offerings(),
		AgentResults: runs,
		Summary: types.ExecutionSummary{
			SucceededAgents: succeeded,
			FailedAgents:    len(runs) - succeeded,
			TotalOfferings:  len(merged),
			TotalDuration:   time.Since(start),
		},
	}

	emit(emitter, types.StreamEvent{Type: types.EventTypeStageCompleted, Stage: types.StageOrchestration})
	l.InfoContext(ctx, "Orchestration session complete",
		slog.Int("succeeded_agents", succeeded),
		slog.Int("failed_agents", len(runs)-succeeded),
		slog.Int("partners", len(merged)))
	span.SetStatus(codes.Ok, "session complete")
	return result
}

// runAgents fans the session out to every agent and gathers their run
// records in a fixed order. A panicking agent is recorded as failed and
// never takes down the session.
func (s *ServiceImpl) runAgents(ctx context.Context, q types.Query, queryVec []float32, emitter *Emitter) []types.AgentRun {
	runs := make([]types.AgentRun, len(s.agents))
	var wg sync.WaitGroup

	for i, agent := range s.agents {
		wg.Add(1)
		go func(i int, agent Agent) {
			defer wg.Done()
			runs[i] = s.runAgent(ctx, agent, q, queryVec)
			emit(emitter, types.StreamEvent{
				Type:  types.EventTypeStageProgress,
				Stage: types.StageAgents,
				Data: map[string]interface{}{
					"agent":   runs[i].AgentName,
					"success": runs[i].Success,
					"results": len(runs[i].Results),
				},
			})
		}(i, agent)
	}
	wg.Wait()

	return runs
}

func (s *ServiceImpl) runAgent(ctx context.Context, agent Agent, q types.Query, queryVec []float32) (run types.AgentRun) {
	start := time.Now()
	run = types.AgentRun{AgentName: agent.Name(), Category: agent.Category()}

	defer func() {
		run.Duration = time.Since(start)
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "Agent panicked",
				slog.String("agent", agent.Name()),
				slog.Any("panic", r))
			run.Success = false
			run.Results = nil
			run.Error = fmt.Sprintf("agent panicked: %v", r)
		}
	}()

	result, err := agent.Run(ctx, q, queryVec)
	if err != nil {
		s.logger.WarnContext(ctx, "Agent failed",
			slog.String("agent", agent.Name()),
			slog.Any("error", err))
		run.Error = err.Error()
		return run
	}

	run.Success = true
	run.Results = result
	return run
}

// synthesize turns the merged partner list into a narrative reply. A
// synthesis failure degrades to the bare partner list with an explanatory
// message instead of failing the whole session.
func (s *ServiceImpl) synthesize(ctx context.Context, l *slog.Logger, q types.Query, partners []types.Offering) (reply, message string) {
	if len(partners) == 0 {
		return "", "No matching partners were found for your request."
	}

	reply, err := s.generator.Generate(ctx, buildSynthesisPrompt(q, partners))
	if err != nil {
		l.WarnContext(ctx, "Synthesis failed, returning partner list without narrative", slog.Any("error", err))
		return "", "We found matching partners but couldn't compose a summary. The full list is included."
	}
	return reply, ""
}

func buildSynthesisPrompt(q types.Query, partners []types.Offering) string {
	var b strings.Builder

	b.WriteString("You are a travel concierge. Several specialized searches ran for the traveler's request; ")
	b.WriteString("compose one coherent recommendation from the combined findings below. ")
	b.WriteString("Group suggestions naturally (where to stay, where to eat, what to do, how to get around) and mention entries by name.\n\n")

	if len(q.Preferences) > 0 {
		b.WriteString("Traveler preferences: ")
		b.WriteString(strings.Join(q.Preferences, ", "))
		b.WriteString("\n\n")
	}

	b.WriteString("Findings:\n")
	for i, p := range partners {
		fmt.Fprintf(&b, "%d. %s (%s", i+1, p.Name, p.Category)
		if p.Location != "" {
			fmt.Fprintf(&b, ", %s", p.Location)
		}
		b.WriteString(")")
		if p.Rating > 0 {
			fmt.Fprintf(&b, " rated %.1f", p.Rating)
		}
		b.WriteString("\n")
		if p.Description != "" {
			fmt.Fprintf(&b, "   %s\n", p.Description)
		}
	}

	b.WriteString("\nRequest: ")
	b.WriteString(q.Text)
	b.WriteString("\n")
	return b.String()
}

func emit(emitter *Emitter, event types.StreamEvent) {
	if emitter == nil {
		return
	}
	emitter.Emit(event)
}
