package repository

import (
	"context"
	"time"
)

// ProcessedUpdateRepository is the persistent dedup ledger.
type ProcessedUpdateRepository interface {
	// Insert records updateID and reports whether this call created the row.
	Insert(ctx context.Context, tx Tx, updateID int64, seenAt time.Time) (bool, error)
	Delete(ctx context.Context, tx Tx, updateID int64) error
	DeleteOlderThan(ctx context.Context, tx Tx, before time.Time) (int64, error)
}
