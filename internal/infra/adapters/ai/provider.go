package ai

import (
	"context"
	"errors"
	"fmt"

	"telegram-nutrition-bot/internal/domain/ports/adapter"
)

// Provider is one backend transport. Unlike adapter.GenerativeBackend it
// reports failures; Gateway turns them into the fallback reply.
type Provider interface {
	Generate(ctx context.Context, transcript []adapter.Message) (string, error)
}

var (
	ErrEmptyReply    = errors.New("ai: backend returned no reply text")
	ErrRegionBlocked = errors.New("ai: backend unavailable in this region")
	ErrNoProvider    = errors.New("ai: no provider configured")
	ErrBadTranscript = errors.New("ai: transcript not accepted")
)

// StatusError is a non-success HTTP answer from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ai: backend status %d", e.Code)
}

// retryable covers rate limiting and server-side failures.
func retryable(code int) bool {
	return code == 429 || code >= 500
}

// outcomeOf maps a Generate error to a metric label.
func outcomeOf(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyReply):
		return "empty"
	case errors.Is(err, ErrRegionBlocked):
		return "region_blocked"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &se):
		if retryable(se.Code) {
			return "exhausted"
		}
		return "rejected"
	default:
		return "transport"
	}
}
