package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) Touch(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (telegram_id, username, language_code, status, first_seen_at, last_seen_at)
VALUES ($1, $2, $3, 'active', NOW(), NOW())
ON CONFLICT (telegram_id) DO UPDATE SET
  username      = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
  language_code = COALESCE(NULLIF(EXCLUDED.language_code, ''), users.language_code),
  status        = 'active',
  last_seen_at  = NOW();`

	if _, err := execSQL(ctx, r.pool, tx, q, u.TelegramID, u.Username, u.LanguageCode); err != nil {
		return opError("users.touch", err)
	}
	return nil
}

func (r *userRepo) UpdateStatus(ctx context.Context, tx repository.Tx, telegramID int64, status model.UserStatus) error {
	const q = `
INSERT INTO users (telegram_id, status, first_seen_at, last_seen_at)
VALUES ($1, $2, NOW(), NOW())
ON CONFLICT (telegram_id) DO UPDATE SET status = EXCLUDED.status, last_seen_at = NOW();`

	if _, err := execSQL(ctx, r.pool, tx, q, telegramID, string(status)); err != nil {
		return opError("users.update_status", err)
	}
	return nil
}

func (r *userRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, telegramID int64) (*model.User, error) {
	const q = `SELECT telegram_id, username, language_code, status, first_seen_at, last_seen_at FROM users WHERE telegram_id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, telegramID)
	if err != nil {
		return nil, err
	}
	u := &model.User{}
	var status string
	if err := row.Scan(&u.TelegramID, &u.Username, &u.LanguageCode, &status, &u.FirstSeenAt, &u.LastSeenAt); err != nil {
		return nil, scanError("users.find", err)
	}
	u.Status = model.UserStatus(status)
	return u, nil
}
