package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyGenerationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want GenerationErrorKind
	}{
		{"deadline", context.DeadlineExceeded, GenerationTimeout},
		{"wrapped deadline", fmt.Errorf("call failed: %w", context.DeadlineExceeded), GenerationTimeout},
		{"http 429", errors.New("googleapi: Error 429: quota exceeded"), GenerationRateLimited},
		{"rate limit text", errors.New("rate limit hit, slow down"), GenerationRateLimited},
		{"auth", errors.New("Error 401: invalid API key"), GenerationAuthFailure},
		{"permission", errors.New("permission denied for model"), GenerationAuthFailure},
		{"bad prompt", errors.New("Error 400: invalid argument"), GenerationMalformedPrompt},
		{"unknown", errors.New("connection reset by peer"), GenerationUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyGenerationError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyGenerationError_PassThrough(t *testing.T) {
	assert.Nil(t, ClassifyGenerationError(nil))

	orig := &GenerationError{Kind: GenerationTimeout, Err: errors.New("slow")}
	wrapped := fmt.Errorf("pipeline: %w", orig)
	assert.Same(t, orig, ClassifyGenerationError(wrapped))
}

func TestGenerationErrorKind_Retryable(t *testing.T) {
	assert.True(t, GenerationTimeout.Retryable())
	assert.True(t, GenerationRateLimited.Retryable())
	assert.False(t, GenerationAuthFailure.Retryable())
	assert.False(t, GenerationMalformedPrompt.Retryable())
	assert.False(t, GenerationUnknown.Retryable())
}

func TestGenerationError_UserMessageMasksInternals(t *testing.T) {
	e := &GenerationError{Kind: GenerationAuthFailure, Err: errors.New("api key sk-123 rejected")}
	assert.NotContains(t, e.UserMessage(), "sk-123")
	assert.NotEmpty(t, e.UserMessage())
}
