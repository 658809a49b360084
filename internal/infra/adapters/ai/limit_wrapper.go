package ai

import (
	"context"

	"telegram-nutrition-bot/internal/domain/ports/adapter"
)

// Compile-time check
var _ Provider = (*limitedProvider)(nil)

type limitedProvider struct {
	inner Provider
	sem   chan struct{}
}

// NewLimitedProvider caps concurrent Generate calls. Waiters give up when
// their context ends.
func NewLimitedProvider(inner Provider, maxConcurrent int) Provider {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedProvider{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedProvider) Generate(ctx context.Context, transcript []adapter.Message) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, transcript)
}
