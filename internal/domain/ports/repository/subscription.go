package repository

import (
	"context"
	"time"

	"telegram-nutrition-bot/internal/domain/model"
)

type SubscriptionRepository interface {
	FindByUser(ctx context.Context, tx Tx, userID int64) (*model.SubscriptionGrant, error)
	// Extend moves until_ts to GREATEST(until_ts, now) + days and returns it.
	Extend(ctx context.Context, tx Tx, userID int64, now time.Time, days int) (time.Time, error)
	ListExpiringBetween(ctx context.Context, tx Tx, from, to time.Time) ([]*model.SubscriptionGrant, error)
}

type ReminderRepository interface {
	// MarkSent inserts the (user, kind) mark and reports whether it is new.
	MarkSent(ctx context.Context, tx Tx, userID int64, kind model.ReminderKind) (bool, error)
	ClearForUser(ctx context.Context, tx Tx, userID int64) error
}
