package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/repository"
)

var _ repository.UsageRepository = (*usageRepo)(nil)

type usageRepo struct{ pool *pgxpool.Pool }

func NewUsageRepo(pool *pgxpool.Pool) *usageRepo {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) FindByUser(ctx context.Context, tx repository.Tx, userID int64) (*model.UsageCounter, error) {
	const q = `SELECT user_id, day, daily_used, total_used FROM usage_counters WHERE user_id = $1`
	row, err := pickRow(ctx, r.pool, tx, forUpdate(q, tx)+";", userID)
	if err != nil {
		return nil, err
	}
	c := &model.UsageCounter{}
	if err := row.Scan(&c.UserID, &c.Day, &c.DailyUsed, &c.TotalUsed); err != nil {
		return nil, scanError("usage_counters.find", err)
	}
	return c, nil
}

// TryConsume is a single conditional upsert: the DO UPDATE branch only fires
// while both limits still hold, so concurrent turns cannot overshoot.
// A stored day older than $2 counts as zero daily usage.
func (r *usageRepo) TryConsume(ctx context.Context, tx repository.Tx, userID int64, day time.Time, limits model.UsageLimits) (bool, error) {
	const q = `
INSERT INTO usage_counters AS u (user_id, day, daily_used, total_used, updated_at)
VALUES ($1, $2::date, 1, 1, NOW())
ON CONFLICT (user_id) DO UPDATE SET
  day        = GREATEST(u.day, EXCLUDED.day),
  daily_used = CASE WHEN u.day < EXCLUDED.day THEN 1 ELSE u.daily_used + 1 END,
  total_used = u.total_used + 1,
  updated_at = NOW()
WHERE ($3::int <= 0 OR (CASE WHEN u.day < EXCLUDED.day THEN 0 ELSE u.daily_used END) < $3::int)
  AND ($4::int <= 0 OR u.total_used < $4::int);`

	cmd, err := execSQL(ctx, r.pool, tx, q, userID, model.CalendarDay(day), limits.Daily, limits.Total)
	if err != nil {
		return false, opError("usage_counters.consume", err)
	}
	return cmd.RowsAffected() == 1, nil
}
