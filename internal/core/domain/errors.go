package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown MIME type or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSourceUnreadable indicates a document could not be parsed.
	// The session for that source cannot continue.
	ErrSourceUnreadable = errors.New("source unreadable")

	// ErrServiceFailure indicates an embedding, generation, or transcription call failed.
	ErrServiceFailure = errors.New("service failure")

	// ErrEmptyContext indicates retrieval produced nothing usable.
	// Callers answer with FallbackAnswer instead of surfacing it.
	ErrEmptyContext = errors.New("empty context")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrTranscriberUnavailable indicates no transcription service is configured.
	ErrTranscriberUnavailable = errors.New("transcription service unavailable")

	// ErrNoSession indicates an operation needs an ingested session first.
	ErrNoSession = errors.New("no active session")

	// ErrMalformedResponse indicates a model reply could not be decoded.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrAgentStepLimit indicates the agent ran out of tool steps without a final answer.
	ErrAgentStepLimit = errors.New("agent step limit reached")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ServiceError describes a failed call to a remote model or data service.
// It matches ErrServiceFailure with errors.Is and also unwraps to its cause.
type ServiceError struct {
	// Op names the failed call, e.g. "openai embeddings".
	Op string

	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int

	// RetryAfter is the server-requested delay, if any.
	RetryAfter time.Duration

	// Err is the underlying cause.
	Err error
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": service failure"
	}
}

// Unwrap exposes both the sentinel and the cause.
func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrServiceFailure}
	}
	return []error{ErrServiceFailure, e.Err}
}

// Temporary reports whether retrying the same call may succeed.
func (e *ServiceError) Temporary() bool {
	if errors.Is(e.Err, ErrRateLimited) {
		return true
	}
	switch {
	case e.StatusCode == 0:
		return e.Err != nil && !isContextError(e.Err)
	case e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode == http.StatusTooManyRequests,
		e.StatusCode >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
