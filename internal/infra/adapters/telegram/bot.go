package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/config"
	"telegram-nutrition-bot/internal/domain"
	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/adapter"
)

var (
	_ adapter.UpdateSource = (*Bot)(nil)
	_ adapter.Messenger    = (*Bot)(nil)
)

const fetchLimit = 100

// Bot is the tgbotapi-backed transport. It fetches updates with explicit
// offsets and never starts its own polling goroutines.
type Bot struct {
	api           *tgbotapi.BotAPI
	providerToken string
	log           *zerolog.Logger
}

func NewBot(cfg *config.BotConfig, providerToken string, logger *zerolog.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	// the HTTP timeout must outlast the long-poll window
	client := &http.Client{Timeout: cfg.PollTimeout + 15*time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	l := logger.With().Str("component", "telegram").Str("bot", api.Self.UserName).Logger()
	return &Bot{api: api, providerToken: providerToken, log: &l}, nil
}

func (b *Bot) Username() string { return b.api.Self.UserName }

func (b *Bot) FetchUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]model.Update, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := b.api.GetUpdates(tgbotapi.UpdateConfig{
		Offset:         int(offset),
		Limit:          fetchLimit,
		Timeout:        int(timeout / time.Second),
		AllowedUpdates: model.AllowedUpdates,
	})
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]model.Update, 0, len(raw))
	for _, u := range raw {
		out = append(out, toUpdate(u))
	}
	return out, nil
}

func (b *Bot) SendMessage(ctx context.Context, p adapter.SendMessageParams) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(p.ChatID, p.Text)
	msg.Entities = toEntities(p.Entities)
	if kb := toKeyboard(p.Keyboard); kb != nil {
		msg.ReplyMarkup = kb
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, mapError(err)
	}
	return sent.MessageID, nil
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.api.Request(tgbotapi.NewCallback(callbackID, ""))
	return mapError(err)
}

func (b *Bot) ClearInlineKeyboard(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, err := b.api.Request(edit)
	return mapError(err)
}

func (b *Bot) SendInvoice(ctx context.Context, p adapter.InvoiceParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.providerToken == "" {
		return domain.ErrPaymentsDisabled
	}
	_, err := b.api.Send(toInvoice(p, b.providerToken))
	return mapError(err)
}

func (b *Bot) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage string) error {
	// answered even when ctx is done: the platform expects a verdict
	cfg := tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: queryID, OK: ok}
	if !ok {
		cfg.ErrorMessage = errorMessage
	}
	_, err := b.api.Request(cfg)
	return mapError(err)
}

// mapError translates platform errors into domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var tgErr *tgbotapi.Error
	if !errors.As(err, &tgErr) {
		return err
	}
	switch tgErr.Code {
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrPollingConflict, tgErr.Message)
	case http.StatusTooManyRequests:
		return &domain.RetryAfterError{After: time.Duration(tgErr.RetryAfter) * time.Second, Err: err}
	default:
		return err
	}
}
