package repository

import (
	"context"

	"telegram-nutrition-bot/internal/domain/model"
)

type UserRepository interface {
	// Touch creates the user or refreshes username and last_seen_at.
	Touch(ctx context.Context, tx Tx, u *model.User) error
	UpdateStatus(ctx context.Context, tx Tx, telegramID int64, status model.UserStatus) error
	FindByTelegramID(ctx context.Context, tx Tx, telegramID int64) (*model.User, error)
}
