package model

import "time"

type PurchaseStatus string

const (
	PurchaseInvoice  PurchaseStatus = "INVOICE"
	PurchasePrecheck PurchaseStatus = "PRECHECK"
	PurchasePaid     PurchaseStatus = "PAID"
	PurchaseFailed   PurchaseStatus = "FAILED"
)

func (s PurchaseStatus) IsTerminal() bool {
	return s == PurchasePaid || s == PurchaseFailed
}

// CanTransition enforces INVOICE -> PRECHECK -> PAID, or any
// non-terminal state -> FAILED.
func (s PurchaseStatus) CanTransition(to PurchaseStatus) bool {
	switch s {
	case PurchaseInvoice:
		return to == PurchasePrecheck || to == PurchasePaid || to == PurchaseFailed
	case PurchasePrecheck:
		return to == PurchasePrecheck || to == PurchasePaid || to == PurchaseFailed
	default:
		return false
	}
}

// TransitionSources lists the statuses allowed to move to `to`, in
// lifecycle order.
func TransitionSources(to PurchaseStatus) []PurchaseStatus {
	var out []PurchaseStatus
	for _, s := range []PurchaseStatus{PurchaseInvoice, PurchasePrecheck, PurchasePaid, PurchaseFailed} {
		if s.CanTransition(to) {
			out = append(out, s)
		}
	}
	return out
}

// PurchaseIntent is the locally stored expectation of one payment.
type PurchaseIntent struct {
	Payload          string
	UserID           int64
	ChatID           int64
	AmountMinor      int64
	Currency         string
	Days             int
	Status           PurchaseStatus
	FailureReason    *string
	TelegramChargeID *string
	ProviderChargeID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
