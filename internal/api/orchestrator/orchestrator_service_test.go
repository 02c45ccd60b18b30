package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travel-rag/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-rag/config"
	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type stubAgent struct {
	name     string
	category types.OfferingCategory
	result   types.RetrievalResult
	err      error
	panics   bool
}

func (a *stubAgent) Name() string                     { return a.name }
func (a *stubAgent) Category() types.OfferingCategory { return a.category }

func (a *stubAgent) Run(_ context.Context, _ types.Query, _ []float32) (types.RetrievalResult, error) {
	if a.panics {
		panic("agent blew up")
	}
	return a.result, a.err
}

func testOrchestratorConfig() config.OrchestratorConfig {
	return config.OrchestratorConfig{
		AgentTopK:           5,
		SimilarityThreshold: 0.3,
		RunTimeout:          10 * time.Second,
		MaxPartners:         20,
	}
}

func newTestOrchestrator(agents []Agent, embedder *mockEmbedder, generator *mockGenerator) *ServiceImpl {
	metrics.InitAppMetrics()
	return NewServiceImpl(agents, embedder, generator, testOrchestratorConfig(), slog.Default())
}

func scored(id uuid.UUID, name string, category types.OfferingCategory, score float64) types.ScoredOffering {
	return types.ScoredOffering{
		Offering: types.Offering{ID: id, Name: name, Category: category},
		Score:    score,
	}
}

func TestRun_PartialAgentFailure(t *testing.T) {
	embedder := new(mockEmbedder)
	generator := new(mockGenerator)

	agents := []Agent{
		&stubAgent{name: "lodging-agent", category: types.CategoryLodging,
			result: types.RetrievalResult{scored(uuid.New(), "Hotel Aurora", types.CategoryLodging, 0.9)}},
		&stubAgent{name: "dining-agent", category: types.CategoryDining,
			err: errors.New("db timeout")},
		&stubAgent{name: "tour-agent", category: types.CategoryTour,
			result: types.RetrievalResult{scored(uuid.New(), "Alfama Walk", types.CategoryTour, 0.8)}},
		&stubAgent{name: "transport-agent", category: types.CategoryTransport,
			result: types.RetrievalResult{}},
	}

	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil).Once()
	generator.On("Generate", mock.Anything, mock.Anything).Return("A fine weekend plan.", nil).Once()

	svc := newTestOrchestrator(agents, embedder, generator)
	result, err := svc.Run(context.Background(), types.Query{Text: "weekend in lisbon"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Summary.SucceededAgents)
	assert.Equal(t, 1, result.Summary.FailedAgents)
	assert.Len(t, result.Partners, 2)
	assert.Equal(t, "A fine weekend plan.", result.Reply)

	require.Len(t, result.AgentResults, 4)
	assert.Equal(t, "lodging-agent", result.AgentResults[0].AgentName)
	assert.False(t, result.AgentResults[1].Success)
	assert.Contains(t, result.AgentResults[1].Error, "db timeout")
}

func TestRun_AllAgentsFail(t *testing.T) {
	embedder := new(mockEmbedder)
	generator := new(mockGenerator)

	agents := []Agent{
		&stubAgent{name: "lodging-agent", category: types.CategoryLodging, err: errors.New("down")},
		&stubAgent{name: "dining-agent", category: types.CategoryDining, err: errors.New("down")},
	}

	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil).Once()

	svc := newTestOrchestrator(agents, embedder, generator)
	result, err := svc.Run(context.Background(), types.Query{Text: "weekend in lisbon"})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)
	assert.Empty(t, result.Partners)
	assert.Equal(t, 2, result.Summary.FailedAgents)

	generator.AssertNotCalled(t, "Generate")
}

func TestRun_PanickingAgentIsIsolated(t *testing.T) {
	embedder := new(mockEmbedder)
	generator := new(mockGenerator)

	agents := []Agent{
		&stubAgent{name: "lodging-agent", category: types.CategoryLodging, panics: true},
		&stubAgent{name: "dining-agent", category: types.CategoryDining,
			result: types.RetrievalResult{scored(uuid.New(), "Taberna Velha", types.CategoryDining, 0.7)}},
	}

	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil).Once()
	generator.On("Generate", mock.Anything, mock.Anything).Return("Eat at Taberna Velha.", nil).Once()

	svc := newTestOrchestrator(agents, embedder, generator)
	result, err := svc.Run(context.Background(), types.Query{Text: "dinner in lisbon"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.AgentResults[0].Success)
	assert.Contains(t, result.AgentResults[0].Error, "panicked")
	assert.Len(t, result.Partners, 1)
}

func TestRun_DeduplicatesAcrossAgents(t *testing.T) {
	embedder := new(mockEmbedder)
	generator := new(mockGenerator)

	shared := uuid.New()
	agents := []Agent{
		&stubAgent{name: "lodging-agent", category: types.CategoryLodging,
			result: types.RetrievalResult{scored(shared, "Hotel Aurora", types.CategoryLodging, 0.6)}},
		&stubAgent{name: "tour-agent", category: types.CategoryTour,
			result: types.RetrievalResult{scored(shared, "Hotel Aurora", types.CategoryLodging, 0.9)}},
	}

	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil).Once()
	generator.On("Generate", mock.Anything, mock.Anything).Return("Stay at Hotel Aurora.", nil).Once()

	svc := newTestOrchestrator(agents, embedder, generator)
	result, err := svc.Run(context.Background(), types.Query{Text: "lisbon"})
	require.NoError(t, err)

	require.Len(t, result.Partners, 1)
	assert.Equal(t, shared, result.Partners[0].ID)
}

func TestRun_SynthesisFailureDegrades(t *testing.T) {
	embedder := new(mockEmbedder)
	generator := new(mockGenerator)

	agents := []Agent{
		&stubAgent{name: "lodging-agent", category: types.CategoryLodging,
			result: types.RetrievalResult{scored(uuid.New(), "Hotel Aurora", types.CategoryLodging, 0.9)}},
	}

	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil).Once()
	generator.On("Generate", mock.Anything, mock.Anything).
		Return("", &types.GenerationError{Kind: types.GenerationTimeout, Err: errors.New("deadline")}).Once()

	svc := newTestOrchestrator(agents, embedder, generator)
	result, err := svc.Run(context.Background(), types.Query{Text: "lisbon"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.Reply)
	assert.NotEmpty(t, result.Message)
	assert.Len(t, result.Partners, 1)
}

func TestRun_EmbeddingFailure(t *testing.T) {
	embedder := new(mockEmbedder)
	generator := new(mockGenerator)

	agents := []Agent{
		&stubAgent{name: "lodging-agent", category: types.CategoryLodging},
	}

	embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, types.ErrEmbeddingFailure).Once()

	svc := newTestOrchestrator(agents, embedder, generator)
	result, err := svc.Run(context.Background(), types.Query{Text: "lisbon"})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)
	generator.AssertNotCalled(t, "Generate")
}

func TestRun_InvalidQuery(t *testing.T) {
	svc := newTestOrchestrator(nil, new(mockEmbedder), new(mockGenerator))

	_, err := svc.Run(context.Background(), types.Query{Text: ""})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestRunStreamed_ExactlyOneTerminalEvent(t *testing.T) {
	embedder := new(mockEmbedder)
	generator := new(mockGenerator)

	agents := []Agent{
		&stubAgent{name: "lodging-agent", category: types.CategoryLodging,
			result: types.RetrievalResult{scored(uuid.New(), "Hotel Aurora", types.CategoryLodging, 0.9)}},
		&stubAgent{name: "dining-agent", category: types.CategoryDining, err: errors.New("down")},
	}

	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil).Once()
	generator.On("Generate", mock.Anything, mock.Anything).Return("Stay at Hotel Aurora.", nil).Once()

	svc := newTestOrchestrator(agents, embedder, generator)
	streamResp, err := svc.RunStreamed(context.Background(), types.Query{Text: "lisbon"})
	require.NoError(t, err)
	defer streamResp.Cancel()

	var events []types.StreamEvent
	for event := range streamResp.Stream {
		events = append(events, event)
	}

	require.NotEmpty(t, events)

	endCount := 0
	for _, e := range events {
		if e.Type == types.EventTypeEnd {
			endCount++
		}
	}
	assert.Equal(t, 1, endCount)

	last := events[len(events)-1]
	assert.Equal(t, types.EventTypeEnd, last.Type)
	assert.True(t, last.IsFinal)

	result, ok := last.Data.(*types.OrchestrationResult)
	require.True(t, ok)
	assert.True(t, result.Success)
}

type panickyEmbedder struct{}

func (panickyEmbedder) Embed(context.Context, string) ([]float32, error) {
	panic("embedder blew up")
}

func TestRunStreamed_PanicStillEndsStream(t *testing.T) {
	agents := []Agent{
		&stubAgent{name: "lodging-agent", category: types.CategoryLodging},
	}

	metrics.InitAppMetrics()
	svc := NewServiceImpl(agents, panickyEmbedder{}, new(mockGenerator), testOrchestratorConfig(), slog.Default())

	streamResp, err := svc.RunStreamed(context.Background(), types.Query{Text: "lisbon"})
	require.NoError(t, err)
	defer streamResp.Cancel()

	var events []types.StreamEvent
	for event := range streamResp.Stream {
		events = append(events, event)
	}

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, types.EventTypeEnd, last.Type)
	assert.True(t, last.IsFinal)

	result, ok := last.Data.(*types.OrchestrationResult)
	require.True(t, ok)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)
}

func TestRunStreamed_EndIsLastEvenAfterErrors(t *testing.T) {
	embedder := new(mockEmbedder)
	generator := new(mockGenerator)

	agents := []Agent{
		&stubAgent{name: "lodging-agent", category: types.CategoryLodging, err: errors.New("down")},
	}

	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1}, nil).Once()

	svc := newTestOrchestrator(agents, embedder, generator)
	streamResp, err := svc.RunStreamed(context.Background(), types.Query{Text: "lisbon"})
	require.NoError(t, err)
	defer streamResp.Cancel()

	var events []types.StreamEvent
	for event := range streamResp.Stream {
		events = append(events, event)
	}

	sawError := false
	for i, e := range events {
		if e.Type == types.EventTypeError {
			sawError = true
		}
		if e.Type == types.EventTypeEnd {
			assert.Equal(t, len(events)-1, i, "end must be the final event")
		}
	}
	assert.True(t, sawError)
}
