package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-nutrition-bot/internal/domain/ports/repository"
)

var _ repository.ProcessedUpdateRepository = (*processedUpdateRepo)(nil)

type processedUpdateRepo struct{ pool *pgxpool.Pool }

func NewProcessedUpdateRepo(pool *pgxpool.Pool) *processedUpdateRepo {
	return &processedUpdateRepo{pool: pool}
}

func (r *processedUpdateRepo) Insert(ctx context.Context, tx repository.Tx, updateID int64, seenAt time.Time) (bool, error) {
	const q = `INSERT INTO processed_updates (update_id, seen_at) VALUES ($1, $2) ON CONFLICT (update_id) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, updateID, seenAt)
	if err != nil {
		return false, opError("processed_updates.insert", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *processedUpdateRepo) Delete(ctx context.Context, tx repository.Tx, updateID int64) error {
	const q = `DELETE FROM processed_updates WHERE update_id = $1;`
	if _, err := execSQL(ctx, r.pool, tx, q, updateID); err != nil {
		return opError("processed_updates.delete", err)
	}
	return nil
}

func (r *processedUpdateRepo) DeleteOlderThan(ctx context.Context, tx repository.Tx, before time.Time) (int64, error) {
	const q = `DELETE FROM processed_updates WHERE seen_at < $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, before)
	if err != nil {
		return 0, opError("processed_updates.prune", err)
	}
	return cmd.RowsAffected(), nil
}
