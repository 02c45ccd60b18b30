// Package generativeAI wraps the Gemini client behind the small interface
// the answer pipeline needs, translating upstream failures into the
// generation error taxonomy.
package generativeAI

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-travel-rag/internal/types"
)

const defaultModel = "gemini-2.0-flash"

// Generator produces the final natural-language answer from a prompt.
// Errors it returns are always *types.GenerationError.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type AIClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
	config *genai.GenerateContentConfig
}

var _ Generator = (*AIClient)(nil)

// NewAIClient builds the Gemini-backed generator. The API key comes from
// GOOGLE_GEMINI_API_KEY.
func NewAIClient(ctx context.Context, logger *slog.Logger) (*AIClient, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY environment variable is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &AIClient{
		client: client,
		model:  defaultModel,
		logger: logger,
		config: &genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0.5),
		},
	}, nil
}

// Generate runs one content generation call and classifies any failure.
func (ai *AIClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("model", ai.model),
		attribute.Int("prompt.length", len(prompt)),
	))
	defer span.End()

	result, err := ai.client.Models.GenerateContent(ctx, ai.model, genai.Text(prompt), ai.config)
	if err != nil {
		genErr := types.ClassifyGenerationError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		ai.logger.ErrorContext(ctx, "Content generation failed",
			slog.String("kind", string(genErr.Kind)),
			slog.Any("error", err))
		return "", genErr
	}

	text := result.Text()
	if text == "" {
		err := types.ClassifyGenerationError(fmt.Errorf("model returned an empty response"))
		span.SetStatus(codes.Error, "empty response")
		return "", err
	}

	span.SetAttributes(attribute.Int("response.length", len(text)))
	span.SetStatus(codes.Ok, "generated")
	return text, nil
}
