package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

type purchaseRepo struct{ pool *pgxpool.Pool }

func NewPurchaseRepo(pool *pgxpool.Pool) *purchaseRepo {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `payload, user_id, chat_id, amount_minor, currency, days, status, failure_reason, telegram_charge_id, provider_charge_id, created_at, updated_at`

func (r *purchaseRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.PurchaseIntent) error {
	const q = `
INSERT INTO purchase_intents (payload, user_id, chat_id, amount_minor, currency, days, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 'INVOICE', NOW(), NOW())
ON CONFLICT (payload) DO UPDATE SET
  amount_minor = EXCLUDED.amount_minor,
  currency     = EXCLUDED.currency,
  days         = EXCLUDED.days,
  updated_at   = NOW()
WHERE purchase_intents.status = 'INVOICE';`

	if _, err := execSQL(ctx, r.pool, tx, q, p.Payload, p.UserID, p.ChatID, p.AmountMinor, p.Currency, p.Days); err != nil {
		return opError("purchase_intents.upsert", err)
	}
	return nil
}

func (r *purchaseRepo) FindByPayload(ctx context.Context, tx repository.Tx, payload string) (*model.PurchaseIntent, error) {
	q := forUpdate(`SELECT `+purchaseColumns+` FROM purchase_intents WHERE payload = $1`, tx) + ";"
	row, err := pickRow(ctx, r.pool, tx, q, payload)
	if err != nil {
		return nil, err
	}
	p := &model.PurchaseIntent{}
	var status string
	if err := row.Scan(&p.Payload, &p.UserID, &p.ChatID, &p.AmountMinor, &p.Currency, &p.Days, &status,
		&p.FailureReason, &p.TelegramChargeID, &p.ProviderChargeID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, scanError("purchase_intents.find", err)
	}
	p.Status = model.PurchaseStatus(status)
	return p, nil
}

// UpdateStatusIf is a compare-and-set on status; only one caller can win a
// given transition.
func (r *purchaseRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, payload string, from []model.PurchaseStatus, to model.PurchaseStatus, reason *string) (bool, error) {
	const q = `
UPDATE purchase_intents
SET status = $2, failure_reason = COALESCE($3, failure_reason), updated_at = NOW()
WHERE payload = $1 AND status = ANY($4);`

	cmd, err := execSQL(ctx, r.pool, tx, q, payload, string(to), reason, statusStrings(from))
	if err != nil {
		return false, opError("purchase_intents.update_status", err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *purchaseRepo) MarkPaid(ctx context.Context, tx repository.Tx, payload string, telegramChargeID, providerChargeID string) (bool, error) {
	const q = `
UPDATE purchase_intents
SET status = 'PAID', telegram_charge_id = $2, provider_charge_id = $3, updated_at = NOW()
WHERE payload = $1 AND status = ANY($4);`

	from := statusStrings(model.TransitionSources(model.PurchasePaid))
	cmd, err := execSQL(ctx, r.pool, tx, q, payload, telegramChargeID, providerChargeID, from)
	if err != nil {
		return false, opError("purchase_intents.mark_paid", err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func statusStrings(in []model.PurchaseStatus) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
