package repository

import (
	"context"
	"time"

	"telegram-nutrition-bot/internal/domain/model"
)

type UsageRepository interface {
	FindByUser(ctx context.Context, tx Tx, userID int64) (*model.UsageCounter, error)
	// TryConsume increments both counters in one statement iff the result stays
	// within limits; daily_used restarts when day is newer than the stored day.
	TryConsume(ctx context.Context, tx Tx, userID int64, day time.Time, limits model.UsageLimits) (bool, error)
}
