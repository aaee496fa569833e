package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/osusumeapp/osusume-server/internal/metrics"
)

// Sentinel errors for catalog operations.
var (
	ErrNotFound    = errors.New("catalog: not found")
	ErrUnavailable = errors.New("catalog: unavailable")
	ErrRateLimited = errors.New("catalog: rate limited by server")
	ErrBadResponse = errors.New("catalog: bad response")

	// ErrTimeout and ErrCircuitOpen are both ErrUnavailable.
	ErrTimeout     = fmt.Errorf("%w: timed out", ErrUnavailable)
	ErrCircuitOpen = fmt.Errorf("%w: circuit breaker open", ErrUnavailable)
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op    string // Operation: "search", "lookup"
	Title string // If applicable
	Err   error
}

func (e *Error) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("catalog %s [%q]: %v", e.Op, e.Title, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, title string, err error) error {
	return &Error{
		Op:    op,
		Title: title,
		Err:   err,
	}
}

// IsRetryable reports whether err is transient: the catalog was unreachable, slow, or
// throttled us. Cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimited)
}

// outcome maps err onto a metrics outcome label.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeCanceled
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrRateLimited):
		return metrics.OutcomeRateLimited
	case errors.Is(err, ErrCircuitOpen):
		return metrics.OutcomeRejected
	case errors.Is(err, ErrUnavailable):
		return metrics.OutcomeUnavailable
	case errors.Is(err, ErrBadResponse):
		return metrics.OutcomeBadResponse
	default:
		return metrics.OutcomeError
	}
}
