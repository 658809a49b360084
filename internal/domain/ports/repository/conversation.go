package repository

import (
	"context"

	"telegram-nutrition-bot/internal/domain/model"
)

// ConversationRepository stores per-chat routing state. Get returns
// domain.ErrNotFound when the chat has no stored state.
type ConversationRepository interface {
	Get(ctx context.Context, chatID int64) (*model.ConversationContext, error)
	Save(ctx context.Context, c *model.ConversationContext) error
}
