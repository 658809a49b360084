package adapter

import (
	"context"
	"time"

	"telegram-nutrition-bot/internal/domain/model"
)

// UpdateSource is the long-polling side of the messaging platform.
// A polling conflict is reported as domain.ErrPollingConflict.
type UpdateSource interface {
	FetchUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]model.Update, error)
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// TextEntity is a rich-text span applied to an outgoing message.
type TextEntity struct {
	Type   string // bold, italic, code, text_link...
	Offset int
	Length int
	URL    string
}

type SendMessageParams struct {
	ChatID   int64
	Text     string
	Keyboard [][]Button
	Entities []TextEntity
}

type LabeledPrice struct {
	Label  string
	Amount int64
}

type InvoiceParams struct {
	ChatID      int64
	Title       string
	Description string
	Payload     string
	Currency    string
	Prices      []LabeledPrice
	NeedEmail   bool
	NeedPhone   bool
	// ProviderData carries structured receipt data as JSON, when the
	// payment provider requires it.
	ProviderData string
}

// Messenger is the outbound side of the messaging platform. SendMessage may
// fail with *domain.RetryAfterError.
type Messenger interface {
	SendMessage(ctx context.Context, p SendMessageParams) (int, error)
	AnswerCallback(ctx context.Context, callbackID string) error
	ClearInlineKeyboard(ctx context.Context, chatID int64, messageID int) error
	SendInvoice(ctx context.Context, p InvoiceParams) error
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage string) error
}
