package repository

import (
	"context"

	"telegram-nutrition-bot/internal/domain/model"
)

type PurchaseRepository interface {
	// Upsert creates the intent at INVOICE, or refreshes amount, currency and
	// days while the stored row is still at INVOICE.
	Upsert(ctx context.Context, tx Tx, p *model.PurchaseIntent) error
	FindByPayload(ctx context.Context, tx Tx, payload string) (*model.PurchaseIntent, error)
	// UpdateStatusIf moves the intent to `to` only when its current status is one
	// of `from`; it reports whether a row changed.
	UpdateStatusIf(ctx context.Context, tx Tx, payload string, from []model.PurchaseStatus, to model.PurchaseStatus, reason *string) (bool, error)
	// MarkPaid records the charge ids together with the PAID transition.
	MarkPaid(ctx context.Context, tx Tx, payload string, telegramChargeID, providerChargeID string) (bool, error)
}
