// File: internal/usecase/user_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/repository"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase keeps the user registry current from messages and
// membership changes.
type UserUseCase interface {
	Touch(ctx context.Context, m *model.Message) error
	HandleMembership(ctx context.Context, c *model.MembershipChange) error
}

type userUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, logger *zerolog.Logger) *userUC {
	l := logger.With().Str("component", "UserTracker").Logger()
	return &userUC{users: users, log: &l}
}

func (u *userUC) Touch(ctx context.Context, m *model.Message) error {
	if m == nil || m.UserID == 0 {
		return nil
	}
	return u.users.Touch(ctx, repository.NoTX, &model.User{
		TelegramID:   m.UserID,
		Username:     m.Username,
		LanguageCode: m.LanguageCode,
	})
}

func (u *userUC) HandleMembership(ctx context.Context, c *model.MembershipChange) error {
	if c == nil || c.UserID == 0 {
		return nil
	}
	status := model.StatusFromMembership(c.NewStatus)
	if err := u.users.UpdateStatus(ctx, repository.NoTX, c.UserID, status); err != nil {
		return err
	}
	u.log.Info().Int64("tg_id", c.UserID).Str("from", c.OldStatus).Str("to", c.NewStatus).Msg("membership changed")
	return nil
}
