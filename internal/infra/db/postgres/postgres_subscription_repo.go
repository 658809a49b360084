package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID int64) (*model.SubscriptionGrant, error) {
	const q = `SELECT user_id, until_ts, updated_at FROM subscriptions WHERE user_id = $1`
	row, err := pickRow(ctx, r.pool, tx, forUpdate(q, tx)+";", userID)
	if err != nil {
		return nil, err
	}
	g := &model.SubscriptionGrant{}
	if err := row.Scan(&g.UserID, &g.Until, &g.UpdatedAt); err != nil {
		return nil, scanError("subscriptions.find", err)
	}
	return g, nil
}

// Extend never moves until_ts backwards: the base is the later of the stored
// expiry and now.
func (r *subscriptionRepo) Extend(ctx context.Context, tx repository.Tx, userID int64, now time.Time, days int) (time.Time, error) {
	const q = `
INSERT INTO subscriptions (user_id, until_ts, updated_at)
VALUES ($1, $2::timestamptz + $3::int * INTERVAL '24 hours', $2::timestamptz)
ON CONFLICT (user_id) DO UPDATE SET
  until_ts   = GREATEST(subscriptions.until_ts, $2::timestamptz) + $3::int * INTERVAL '24 hours',
  updated_at = $2::timestamptz
RETURNING until_ts;`

	row, err := pickRow(ctx, r.pool, tx, q, userID, now, days)
	if err != nil {
		return time.Time{}, err
	}
	var until time.Time
	if err := row.Scan(&until); err != nil {
		return time.Time{}, opError("subscriptions.extend", err)
	}
	return until, nil
}

func (r *subscriptionRepo) ListExpiringBetween(ctx context.Context, tx repository.Tx, from, to time.Time) ([]*model.SubscriptionGrant, error) {
	const q = `SELECT user_id, until_ts, updated_at FROM subscriptions WHERE until_ts >= $1 AND until_ts < $2 ORDER BY until_ts ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, from, to)
	if err != nil {
		return nil, opError("subscriptions.list_expiring", err)
	}
	defer rows.Close()

	var out []*model.SubscriptionGrant
	for rows.Next() {
		g := &model.SubscriptionGrant{}
		if err := rows.Scan(&g.UserID, &g.Until, &g.UpdatedAt); err != nil {
			return nil, scanError("subscriptions.list_expiring", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, opError("subscriptions.list_expiring", err)
	}
	return out, nil
}
