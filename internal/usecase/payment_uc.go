// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain"
	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/repository"
	"telegram-nutrition-bot/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// Rejection reasons recorded on the intent and in logs.
const (
	ReasonPaymentsDisabled = "payments_disabled"
	ReasonEmptyPayload     = "empty_payload"
	ReasonUnknownPayload   = "unknown_payload"
	ReasonUserMismatch     = "user_mismatch"
	ReasonDuplicate        = "duplicate"
	ReasonAlreadyFailed    = "already_failed"
	ReasonStateChanged     = "state_changed"
	ReasonStorage          = "storage_error"
	reasonCurrencyPrefix   = "currency_"
	reasonAmountPrefix     = "amount_"
)

// User-facing rejection message keys, resolved by the translator.
const (
	MsgPaymentsDisabled = "payment.reject.disabled"
	MsgPaymentUnknown   = "payment.reject.unknown"
	MsgPaymentForeign   = "payment.reject.foreign"
	MsgPaymentDuplicate = "payment.reject.duplicate"
	MsgPaymentChanged   = "payment.reject.changed"
	MsgPaymentRetry     = "payment.reject.retry"
)

// PreCheckoutVerdict is the answer to a pre-checkout query. UserMessage is a
// translator key shown to the buyer; Reason is the internal code.
type PreCheckoutVerdict struct {
	OK          bool
	UserMessage string
	Reason      string
}

func reject(msg, reason string) PreCheckoutVerdict {
	return PreCheckoutVerdict{OK: false, UserMessage: msg, Reason: reason}
}

type PaymentUseCase interface {
	Enabled() bool
	// NewPayload returns a fresh opaque invoice payload for userID.
	NewPayload(userID int64) string
	// RegisterInvoice upserts the intent at INVOICE.
	RegisterInvoice(ctx context.Context, intent *model.PurchaseIntent) error
	// ValidatePreCheckout fails closed; it never calls slow collaborators.
	ValidatePreCheckout(ctx context.Context, q model.PreCheckoutQuery) PreCheckoutVerdict
	// HandleSuccessfulPayment returns true only for the caller that moved the
	// intent to PAID; the intent is returned whenever it was found.
	HandleSuccessfulPayment(ctx context.Context, userID int64, p model.SuccessfulPayment) (bool, *model.PurchaseIntent, error)
}

type paymentUC struct {
	purchases repository.PurchaseRepository
	enabled   bool
	timeout   time.Duration
	log       *zerolog.Logger
}

func NewPaymentUseCase(purchases repository.PurchaseRepository, enabled bool, precheckoutTimeout time.Duration, logger *zerolog.Logger) *paymentUC {
	if precheckoutTimeout <= 0 {
		precheckoutTimeout = 5 * time.Second
	}
	l := logger.With().Str("component", "PaymentPipeline").Logger()
	return &paymentUC{purchases: purchases, enabled: enabled, timeout: precheckoutTimeout, log: &l}
}

func (u *paymentUC) Enabled() bool { return u.enabled }

func (u *paymentUC) NewPayload(userID int64) string {
	return fmt.Sprintf("sub:%d:%s", userID, ulid.MustNew(ulid.Now(), rand.Reader).String())
}

func (u *paymentUC) RegisterInvoice(ctx context.Context, intent *model.PurchaseIntent) error {
	if !u.enabled {
		return domain.ErrPaymentsDisabled
	}
	if strings.TrimSpace(intent.Payload) == "" || intent.AmountMinor <= 0 || intent.Currency == "" || intent.Days <= 0 {
		return domain.ErrInvalidArgument
	}
	if err := u.purchases.Upsert(ctx, repository.NoTX, intent); err != nil {
		return err
	}
	metrics.IncPayment(string(model.PurchaseInvoice))
	u.log.Info().Str("payload", intent.Payload).Int64("tg_id", intent.UserID).
		Int64("amount", intent.AmountMinor).Str("currency", intent.Currency).Msg("invoice registered")
	return nil
}

func (u *paymentUC) ValidatePreCheckout(ctx context.Context, q model.PreCheckoutQuery) PreCheckoutVerdict {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	v := u.validatePreCheckout(ctx, q)
	log := u.log.With().Str("payload", q.Payload).Int64("tg_id", q.UserID).Logger()
	if v.OK {
		metrics.IncPayment(string(model.PurchasePrecheck))
		log.Info().Msg("pre-checkout accepted")
	} else {
		metrics.IncPrecheckReject(reasonLabel(v.Reason))
		log.Warn().Str("reason", v.Reason).Msg("pre-checkout rejected")
	}
	return v
}

func (u *paymentUC) validatePreCheckout(ctx context.Context, q model.PreCheckoutQuery) PreCheckoutVerdict {
	if !u.enabled {
		return reject(MsgPaymentsDisabled, ReasonPaymentsDisabled)
	}
	if strings.TrimSpace(q.Payload) == "" {
		return reject(MsgPaymentUnknown, ReasonEmptyPayload)
	}
	intent, err := u.purchases.FindByPayload(ctx, repository.NoTX, q.Payload)
	if errors.Is(err, domain.ErrNotFound) {
		return reject(MsgPaymentUnknown, ReasonUnknownPayload)
	}
	if err != nil {
		u.log.Error().Err(err).Str("payload", q.Payload).Msg("pre-checkout lookup failed")
		return reject(MsgPaymentRetry, ReasonStorage)
	}
	if intent.UserID != q.UserID {
		u.fail(ctx, q.Payload, ReasonUserMismatch)
		return reject(MsgPaymentForeign, ReasonUserMismatch)
	}
	if intent.Status.IsTerminal() {
		if intent.Status == model.PurchasePaid {
			return reject(MsgPaymentDuplicate, ReasonDuplicate)
		}
		return reject(MsgPaymentChanged, ReasonAlreadyFailed)
	}
	if reason := mismatch(intent, q.Currency, q.Amount); reason != "" {
		u.fail(ctx, q.Payload, reason)
		return reject(MsgPaymentChanged, reason)
	}
	ok, err := u.purchases.UpdateStatusIf(ctx, repository.NoTX, q.Payload,
		model.TransitionSources(model.PurchasePrecheck), model.PurchasePrecheck, nil)
	if err != nil {
		u.log.Error().Err(err).Str("payload", q.Payload).Msg("pre-checkout transition failed")
		return reject(MsgPaymentRetry, ReasonStorage)
	}
	if !ok {
		return reject(MsgPaymentChanged, ReasonStateChanged)
	}
	return PreCheckoutVerdict{OK: true}
}

func (u *paymentUC) HandleSuccessfulPayment(ctx context.Context, userID int64, p model.SuccessfulPayment) (bool, *model.PurchaseIntent, error) {
	log := u.log.With().Str("payload", p.Payload).Int64("tg_id", userID).Logger()

	intent, err := u.purchases.FindByPayload(ctx, repository.NoTX, p.Payload)
	if errors.Is(err, domain.ErrNotFound) {
		log.Error().Str("charge_id", p.TelegramChargeID).Msg("successful payment without intent")
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	if intent.UserID != userID {
		log.Warn().Int64("intent_user", intent.UserID).Msg("successful payment from a different user than the intent")
	}
	if intent.Status.IsTerminal() {
		if intent.Status == model.PurchasePaid {
			log.Info().Msg("duplicate successful payment ignored")
		} else {
			log.Error().Str("charge_id", p.TelegramChargeID).Str("status", string(intent.Status)).
				Msg("successful payment for a settled intent")
		}
		return false, intent, nil
	}
	// Any change between pre-checkout and success is rejected, including
	// provider-side currency conversion.
	if reason := mismatch(intent, p.Currency, p.Amount); reason != "" {
		u.fail(ctx, p.Payload, reason)
		log.Error().Str("reason", reason).Str("charge_id", p.TelegramChargeID).Msg("successful payment mismatch")
		return false, intent, nil
	}
	ok, err := u.purchases.MarkPaid(ctx, repository.NoTX, p.Payload, p.TelegramChargeID, p.ProviderChargeID)
	if err != nil {
		return false, intent, err
	}
	if !ok {
		log.Info().Msg("intent already settled by a concurrent handler")
		return false, intent, nil
	}
	intent.Status = model.PurchasePaid
	intent.TelegramChargeID = &p.TelegramChargeID
	intent.ProviderChargeID = &p.ProviderChargeID
	metrics.IncPayment(string(model.PurchasePaid))
	metrics.AddPaymentRevenue(intent.Currency, intent.AmountMinor)
	log.Info().Int64("amount", intent.AmountMinor).Str("currency", intent.Currency).Msg("payment settled")
	return true, intent, nil
}

// fail moves a non-terminal intent to FAILED with reason.
func (u *paymentUC) fail(ctx context.Context, payload, reason string) {
	r := reason
	ok, err := u.purchases.UpdateStatusIf(ctx, repository.NoTX, payload,
		model.TransitionSources(model.PurchaseFailed), model.PurchaseFailed, &r)
	if err != nil {
		u.log.Error().Err(err).Str("payload", payload).Str("reason", reason).Msg("could not mark intent failed")
		return
	}
	if ok {
		metrics.IncPayment(string(model.PurchaseFailed))
	}
}

func mismatch(intent *model.PurchaseIntent, currency string, amount int64) string {
	if currency != intent.Currency {
		return reasonCurrencyPrefix + currency
	}
	if amount != intent.AmountMinor {
		return reasonAmountPrefix + strconv.FormatInt(amount, 10)
	}
	return ""
}

func reasonLabel(reason string) string {
	switch {
	case strings.HasPrefix(reason, reasonCurrencyPrefix):
		return "currency"
	case strings.HasPrefix(reason, reasonAmountPrefix):
		return "amount"
	default:
		return reason
	}
}
