package application

import (
	"context"
	"time"
)

// ---- small interfaces to decouple the application layer from infra ----

// Translator resolves user-facing texts.
type Translator interface {
	T(key string, args ...interface{}) string
}

// FloodLimiter is a per-key fixed-window counter.
type FloodLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// PollLock guards against two pollers sharing one bot token.
type PollLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Refresh(ctx context.Context, key, token string, ttl time.Duration) error
	Unlock(ctx context.Context, key, token string) error
}
