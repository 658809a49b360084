//go:build !integration

package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"telegram-nutrition-bot/internal/domain"
	"telegram-nutrition-bot/internal/domain/model"
)

const testPayload = "sub:7:01HZZZ"

func newPaymentUC(enabled bool) (*paymentUC, *memPurchaseRepo) {
	repo := newMemPurchaseRepo()
	return NewPaymentUseCase(repo, enabled, time.Second, newTestLogger()), repo
}

func registerTestIntent(t *testing.T, uc *paymentUC) {
	t.Helper()
	err := uc.RegisterInvoice(context.Background(), &model.PurchaseIntent{
		Payload: testPayload, UserID: 7, ChatID: 7, AmountMinor: 70000, Currency: "RUB", Days: 30,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
}

func TestPaymentUseCase_RegisterInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("should refuse when payments are disabled", func(t *testing.T) {
		uc, _ := newPaymentUC(false)
		err := uc.RegisterInvoice(ctx, &model.PurchaseIntent{Payload: "p", UserID: 1, AmountMinor: 1, Currency: "RUB", Days: 1})
		if !errors.Is(err, domain.ErrPaymentsDisabled) {
			t.Errorf("expected ErrPaymentsDisabled, got %v", err)
		}
	})

	t.Run("should be idempotent and refresh while at INVOICE", func(t *testing.T) {
		uc, repo := newPaymentUC(true)
		registerTestIntent(t, uc)

		_ = uc.RegisterInvoice(ctx, &model.PurchaseIntent{Payload: testPayload, UserID: 7, ChatID: 7, AmountMinor: 80000, Currency: "RUB", Days: 30})

		if got := repo.intents[testPayload]; got.AmountMinor != 80000 || got.Status != model.PurchaseInvoice {
			t.Errorf("unexpected intent %+v", got)
		}
	})

	t.Run("should build unique payloads for the user", func(t *testing.T) {
		uc, _ := newPaymentUC(true)
		a, b := uc.NewPayload(7), uc.NewPayload(7)
		if a == b || !strings.HasPrefix(a, "sub:7:") {
			t.Errorf("unexpected payloads %q %q", a, b)
		}
	})
}

func TestPaymentUseCase_ValidatePreCheckout(t *testing.T) {
	ctx := context.Background()
	good := model.PreCheckoutQuery{ID: "q1", UserID: 7, Currency: "RUB", Amount: 70000, Payload: testPayload}

	t.Run("should accept a matching query and move to PRECHECK", func(t *testing.T) {
		uc, repo := newPaymentUC(true)
		registerTestIntent(t, uc)

		v := uc.ValidatePreCheckout(ctx, good)

		if !v.OK {
			t.Fatalf("expected acceptance, got %+v", v)
		}
		if s := repo.status(testPayload); s != model.PurchasePrecheck {
			t.Errorf("expected PRECHECK, got %s", s)
		}
	})

	t.Run("should reject a currency mismatch and fail the intent", func(t *testing.T) {
		// --- Arrange ---
		uc, repo := newPaymentUC(true)
		registerTestIntent(t, uc)
		q := good
		q.Currency = "USD"

		// --- Act ---
		v := uc.ValidatePreCheckout(ctx, q)

		// --- Assert ---
		if v.OK {
			t.Fatal("expected rejection")
		}
		if v.Reason != "currency_USD" {
			t.Errorf("expected reason currency_USD, got %q", v.Reason)
		}
		if v.UserMessage == v.Reason || v.UserMessage == "" {
			t.Errorf("expected a user message distinct from the reason, got %q", v.UserMessage)
		}
		intent := repo.intents[testPayload]
		if intent.Status != model.PurchaseFailed {
			t.Errorf("expected FAILED, got %s", intent.Status)
		}
		if intent.FailureReason == nil || *intent.FailureReason != "currency_USD" {
			t.Errorf("expected failure reason to be recorded, got %v", intent.FailureReason)
		}
	})

	cases := []struct {
		name       string
		enabled    bool
		register   bool
		mutate     func(q *model.PreCheckoutQuery)
		prepare    func(repo *memPurchaseRepo)
		wantReason string
		wantStatus model.PurchaseStatus
	}{
		{name: "payments disabled", enabled: false, register: false, wantReason: ReasonPaymentsDisabled},
		{name: "blank payload", enabled: true, register: true, mutate: func(q *model.PreCheckoutQuery) { q.Payload = "  " }, wantReason: ReasonEmptyPayload, wantStatus: model.PurchaseInvoice},
		{name: "unknown payload", enabled: true, register: true, mutate: func(q *model.PreCheckoutQuery) { q.Payload = "nope" }, wantReason: ReasonUnknownPayload, wantStatus: model.PurchaseInvoice},
		{name: "user mismatch", enabled: true, register: true, mutate: func(q *model.PreCheckoutQuery) { q.UserID = 8 }, wantReason: ReasonUserMismatch, wantStatus: model.PurchaseFailed},
		{name: "amount mismatch", enabled: true, register: true, mutate: func(q *model.PreCheckoutQuery) { q.Amount = 1 }, wantReason: "amount_1", wantStatus: model.PurchaseFailed},
		{name: "already paid", enabled: true, register: true, prepare: func(repo *memPurchaseRepo) { repo.intents[testPayload].Status = model.PurchasePaid }, wantReason: ReasonDuplicate, wantStatus: model.PurchasePaid},
		{name: "storage failure", enabled: true, register: true, prepare: func(repo *memPurchaseRepo) { repo.findErr = errBoom }, wantReason: ReasonStorage, wantStatus: model.PurchaseInvoice},
	}
	for _, tc := range cases {
		t.Run("should reject "+tc.name, func(t *testing.T) {
			uc, repo := newPaymentUC(true)
			if tc.register {
				registerTestIntent(t, uc)
			}
			uc.enabled = tc.enabled
			if tc.prepare != nil {
				tc.prepare(repo)
			}
			q := good
			if tc.mutate != nil {
				tc.mutate(&q)
			}

			v := uc.ValidatePreCheckout(ctx, q)

			if v.OK || v.Reason != tc.wantReason {
				t.Fatalf("expected rejection %q, got %+v", tc.wantReason, v)
			}
			if v.UserMessage == "" {
				t.Error("expected a user-facing message")
			}
			if tc.register {
				repo.findErr = nil
				if s := repo.status(testPayload); s != tc.wantStatus {
					t.Errorf("expected status %s, got %s", tc.wantStatus, s)
				}
			}
		})
	}
}

func TestPaymentUseCase_HandleSuccessfulPayment(t *testing.T) {
	ctx := context.Background()
	paid := model.SuccessfulPayment{Currency: "RUB", Amount: 70000, Payload: testPayload, TelegramChargeID: "tg-1", ProviderChargeID: "pr-1"}

	t.Run("should settle exactly once", func(t *testing.T) {
		// --- Arrange ---
		uc, repo := newPaymentUC(true)
		registerTestIntent(t, uc)
		_ = uc.ValidatePreCheckout(ctx, model.PreCheckoutQuery{UserID: 7, Currency: "RUB", Amount: 70000, Payload: testPayload})

		// --- Act ---
		first, intent, err1 := uc.HandleSuccessfulPayment(ctx, 7, paid)
		second, _, err2 := uc.HandleSuccessfulPayment(ctx, 7, paid)

		// --- Assert ---
		if err1 != nil || err2 != nil {
			t.Fatalf("unexpected errors: %v %v", err1, err2)
		}
		if !first || second {
			t.Errorf("expected first=true second=false, got %v %v", first, second)
		}
		if intent == nil || intent.Days != 30 || intent.UserID != 7 {
			t.Errorf("expected the settled intent, got %+v", intent)
		}
		if s := repo.status(testPayload); s != model.PurchasePaid {
			t.Errorf("expected PAID, got %s", s)
		}
	})

	t.Run("should reject an amount change after pre-checkout", func(t *testing.T) {
		uc, repo := newPaymentUC(true)
		registerTestIntent(t, uc)
		p := paid
		p.Amount = 69999

		ok, _, err := uc.HandleSuccessfulPayment(ctx, 7, p)

		if err != nil || ok {
			t.Fatalf("expected rejection without error, got %v %v", ok, err)
		}
		if s := repo.status(testPayload); s != model.PurchaseFailed {
			t.Errorf("expected FAILED, got %s", s)
		}
	})

	t.Run("should reject a currency that differs only in case", func(t *testing.T) {
		uc, repo := newPaymentUC(true)
		registerTestIntent(t, uc)
		p := paid
		p.Currency = "rub"

		ok, _, err := uc.HandleSuccessfulPayment(ctx, 7, p)

		if err != nil || ok {
			t.Fatalf("expected rejection without error, got %v %v", ok, err)
		}
		if s := repo.status(testPayload); s != model.PurchaseFailed {
			t.Errorf("expected FAILED, got %s", s)
		}
	})

	t.Run("should not settle an intent that already failed", func(t *testing.T) {
		uc, repo := newPaymentUC(true)
		registerTestIntent(t, uc)
		q := model.PreCheckoutQuery{UserID: 7, Currency: "RUB", Amount: 1, Payload: testPayload}
		_ = uc.ValidatePreCheckout(ctx, q)

		ok, intent, err := uc.HandleSuccessfulPayment(ctx, 7, paid)

		if err != nil || ok {
			t.Fatalf("expected no settlement, got %v %v", ok, err)
		}
		if intent == nil || intent.Status != model.PurchaseFailed {
			t.Errorf("expected the failed intent back, got %+v", intent)
		}
		if s := repo.status(testPayload); s != model.PurchaseFailed {
			t.Errorf("expected FAILED to stay, got %s", s)
		}
	})

	t.Run("should not credit an unknown payload", func(t *testing.T) {
		uc, _ := newPaymentUC(true)
		ok, intent, err := uc.HandleSuccessfulPayment(ctx, 7, paid)
		if ok || intent != nil || err != nil {
			t.Errorf("expected no credit, got %v %+v %v", ok, intent, err)
		}
	})

	t.Run("should propagate storage errors", func(t *testing.T) {
		uc, repo := newPaymentUC(true)
		repo.findErr = errBoom
		if _, _, err := uc.HandleSuccessfulPayment(ctx, 7, paid); !errors.Is(err, errBoom) {
			t.Errorf("expected storage error, got %v", err)
		}
	})
}
