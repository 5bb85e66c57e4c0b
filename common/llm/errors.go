package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

var (
	// ErrUnavailable is returned when no completion backend is configured.
	ErrUnavailable = errors.New("completion service unavailable")
	// ErrEmptyCompletion is returned when the service answers with no text.
	ErrEmptyCompletion = errors.New("empty completion response")
	// ErrCircuitOpen is returned without calling out while the breaker is open.
	ErrCircuitOpen = errors.New("completion circuit open")
)

// MalformedError reports completion text that could not be decoded even after repair.
type MalformedError struct {
	Content string
	Err     error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed completion response: %v", e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err is (or wraps) a MalformedError.
func IsMalformed(err error) bool {
	var m *MalformedError
	return errors.As(err, &m)
}

// IsRetryable decides whether a failed call is worth one more attempt.
func IsRetryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.DebugContext(ctx, "completion error not retryable: context cancelled or deadline exceeded")
		return false
	}

	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrEmptyCompletion) || IsMalformed(err) {
		return false
	}

	if status, ok := statusCode(err); ok {
		switch {
		case status == 429:
			slog.WarnContext(ctx, "completion rate limited, will retry", "status_code", status)
			return true
		case status >= 500:
			slog.WarnContext(ctx, "completion server error, will retry", "status_code", status)
			return true
		default:
			slog.ErrorContext(ctx, "completion client error, not retryable", "status_code", status)
			return false
		}
	}

	// Network errors (no API response) are generally retryable
	slog.WarnContext(ctx, "completion network error, will retry", "error", err)
	return true
}

func statusCode(err error) (int, bool) {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode, true
	}
	var anErr *anthropic.Error
	if errors.As(err, &anErr) {
		return anErr.StatusCode, true
	}
	return 0, false
}
