package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the recoverable failure classes. Callers branch with
// errors.Is; HTTP handlers map them to status codes and safe messages.
var (
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInputTooLarge    = errors.New("input exceeds size limit")
	ErrEmbeddingFailure = errors.New("embedding service failure")
	ErrRetrievalFailure = errors.New("all retrieval sources failed")
)

// GenerationErrorKind classifies generation-model failures so callers can
// distinguish retryable from non-retryable causes.
type GenerationErrorKind string

const (
	GenerationTimeout         GenerationErrorKind = "timeout"
	GenerationRateLimited     GenerationErrorKind = "rate_limited"
	GenerationAuthFailure     GenerationErrorKind = "auth"
	GenerationMalformedPrompt GenerationErrorKind = "malformed_prompt"
	GenerationUnknown         GenerationErrorKind = "unknown"
)

// Retryable reports whether the caller may retry the same request.
func (k GenerationErrorKind) Retryable() bool {
	return k == GenerationTimeout || k == GenerationRateLimited
}

// GenerationError wraps a generation-model failure with its classified kind.
// The wrapped error never crosses the HTTP boundary; only the kind and the
// user message do.
type GenerationError struct {
	Kind GenerationErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// UserMessage returns the safe, human-readable message for the caller.
func (e *GenerationError) UserMessage() string {
	switch e.Kind {
	case GenerationTimeout:
		return "The request took too long to process. Try simplifying your question."
	case GenerationRateLimited:
		return "The service is busy right now. Please wait a moment and try again."
	case GenerationMalformedPrompt:
		return "We couldn't process that request. Try rephrasing your question."
	default:
		// Auth and config failures are masked as generic service errors.
		return "The recommendation service is temporarily unavailable."
	}
}

// ClassifyGenerationError derives a GenerationError from an upstream model
// failure. Classification is best-effort over the transport error since the
// model client does not expose typed errors.
func ClassifyGenerationError(err error) *GenerationError {
	if err == nil {
		return nil
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge
	}

	kind := GenerationUnknown
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		kind = GenerationTimeout
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") || strings.Contains(msg, "resource exhausted"):
		kind = GenerationRateLimited
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "api key") || strings.Contains(msg, "permission") || strings.Contains(msg, "unauthenticated"):
		kind = GenerationAuthFailure
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid argument") || strings.Contains(msg, "malformed"):
		kind = GenerationMalformedPrompt
	}
	return &GenerationError{Kind: kind, Err: err}
}
