package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/repository"
)

var _ repository.ReminderRepository = (*reminderRepo)(nil)

type reminderRepo struct{ pool *pgxpool.Pool }

func NewReminderRepo(pool *pgxpool.Pool) *reminderRepo {
	return &reminderRepo{pool: pool}
}

func (r *reminderRepo) MarkSent(ctx context.Context, tx repository.Tx, userID int64, kind model.ReminderKind) (bool, error) {
	const q = `INSERT INTO reminder_marks (user_id, kind, sent_at) VALUES ($1, $2, NOW()) ON CONFLICT (user_id, kind) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, string(kind))
	if err != nil {
		return false, opError("reminder_marks.mark", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *reminderRepo) ClearForUser(ctx context.Context, tx repository.Tx, userID int64) error {
	const q = `DELETE FROM reminder_marks WHERE user_id = $1;`
	if _, err := execSQL(ctx, r.pool, tx, q, userID); err != nil {
		return opError("reminder_marks.clear", err)
	}
	return nil
}
