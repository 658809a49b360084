package ai

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain/ports/adapter"
	"telegram-nutrition-bot/internal/infra/metrics"
)

const maxAttempts = 3

// Retrier runs one backend call up to three times. Rate limiting, 5xx answers
// and transport errors back off attempt^2 * base before the next try; every
// other failure returns at once.
type Retrier struct {
	base  time.Duration
	sleep func(ctx context.Context, d time.Duration) error
	log   *zerolog.Logger
}

func NewRetrier(base time.Duration, logger *zerolog.Logger) *Retrier {
	return &Retrier{base: base, sleep: sleepCtx, log: logger}
}

func (r *Retrier) Do(ctx context.Context, call func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := call(ctx)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !shouldRetry(err) {
			return "", err
		}
		lastErr = err

		var se *StatusError
		isStatus := errors.As(err, &se)
		if isStatus {
			r.log.Warn().Int("status", se.Code).Int("attempt", attempt).Msg("backend retryable status")
		} else {
			r.log.Warn().Err(err).Int("attempt", attempt).Msg("backend transport error")
		}
		if attempt == maxAttempts {
			break
		}
		if isStatus {
			metrics.IncAIRetry(se.Code)
		}
		if err := r.sleep(ctx, time.Duration(attempt*attempt)*r.base); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// shouldRetry treats unclassified errors as transport failures.
func shouldRetry(err error) bool {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return retryable(se.Code)
	case errors.Is(err, ErrEmptyReply), errors.Is(err, ErrRegionBlocked), errors.Is(err, ErrBadTranscript):
		return false
	default:
		return true
	}
}

// RetryingProvider puts a Provider that makes single attempts behind a Retrier.
type RetryingProvider struct {
	next  Provider
	retry *Retrier
}

var _ Provider = (*RetryingProvider)(nil)

func NewRetryingProvider(next Provider, base time.Duration, logger *zerolog.Logger) *RetryingProvider {
	return &RetryingProvider{next: next, retry: NewRetrier(base, logger)}
}

func (p *RetryingProvider) Generate(ctx context.Context, transcript []adapter.Message) (string, error) {
	return p.retry.Do(ctx, func(ctx context.Context) (string, error) {
		return p.next.Generate(ctx, transcript)
	})
}
