package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"telegram-nutrition-bot/internal/domain"
	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/repository"
)

var _ repository.ConversationRepository = (*ConversationRepo)(nil)

// ConversationRepo keeps per-chat persona and pending state in Redis as JSON.
// Entries expire after ttl of inactivity and fall back to the defaults.
type ConversationRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewConversationRepo(client RedisClient, ttl time.Duration) *ConversationRepo {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &ConversationRepo{client: client, ttl: ttl}
}

func (r *ConversationRepo) key(chatID int64) string {
	return fmt.Sprintf("conv_ctx:%d", chatID)
}

func (r *ConversationRepo) Get(ctx context.Context, chatID int64) (*model.ConversationContext, error) {
	data, err := r.client.Get(ctx, r.key(chatID))
	if err != nil {
		if errors.Is(err, Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var c model.ConversationContext
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("decode conversation %d: %w", chatID, err)
	}
	c.ChatID = chatID
	c.Normalize()
	return &c, nil
}

func (r *ConversationRepo) Save(ctx context.Context, c *model.ConversationContext) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(c.ChatID), data, r.ttl)
}
