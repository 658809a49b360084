//go:build !integration

package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain"
	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/adapter"
	"telegram-nutrition-bot/internal/usecase"
)

var errBoom = errors.New("boom")

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// --- conversation store ---

type memConvRepo struct {
	items   map[int64]model.ConversationContext
	saveErr error
}

func newMemConvRepo() *memConvRepo {
	return &memConvRepo{items: map[int64]model.ConversationContext{}}
}

func (m *memConvRepo) Get(_ context.Context, chatID int64) (*model.ConversationContext, error) {
	c, ok := m.items[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *memConvRepo) Save(_ context.Context, c *model.ConversationContext) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[c.ChatID] = *c
	return nil
}

func (m *memConvRepo) state(chatID int64) (model.PersonaMode, model.PendingState) {
	c, ok := m.items[chatID]
	if !ok {
		return "", ""
	}
	return c.Persona, c.Pending
}

// --- usecases ---

type fakeUsage struct {
	deny      bool
	err       error
	consumed  int
	daily     int
	total     int
	lastAdmin bool
}

func (f *fakeUsage) Allow(context.Context, int64, bool) (bool, error) { return !f.deny, f.err }

func (f *fakeUsage) Consume(_ context.Context, _ int64, isAdmin bool) (bool, error) {
	f.lastAdmin = isAdmin
	if f.err != nil {
		return false, f.err
	}
	if f.deny {
		return false, nil
	}
	f.consumed++
	return true, nil
}

func (f *fakeUsage) Remaining(context.Context, int64) (int, int, error) {
	return f.daily, f.total, f.err
}

type grantCall struct {
	userID int64
	days   int
}

type fakeSubs struct {
	grant    *model.SubscriptionGrant
	grants   []grantCall
	grantErr error
	until    time.Time
}

func (f *fakeSubs) IsActive(context.Context, int64) (bool, error) {
	return f.grant != nil && f.grant.IsActive(time.Now()), nil
}

func (f *fakeSubs) Get(context.Context, int64) (*model.SubscriptionGrant, error) {
	if f.grant == nil {
		return nil, domain.ErrNotFound
	}
	return f.grant, nil
}

func (f *fakeSubs) GrantDays(_ context.Context, userID int64, days int) (time.Time, error) {
	if f.grantErr != nil {
		return time.Time{}, f.grantErr
	}
	f.grants = append(f.grants, grantCall{userID, days})
	return f.until, nil
}

func (f *fakeSubs) SweepReminders(context.Context) (int, error) { return 0, nil }

type fakePayments struct {
	enabled     bool
	registered  []*model.PurchaseIntent
	registerErr error
	verdict     usecase.PreCheckoutVerdict
	won         bool
	intent      *model.PurchaseIntent
	successErr  error
}

func (f *fakePayments) Enabled() bool { return f.enabled }

func (f *fakePayments) NewPayload(userID int64) string { return fmt.Sprintf("sub:%d:test", userID) }

func (f *fakePayments) RegisterInvoice(_ context.Context, intent *model.PurchaseIntent) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, intent)
	return nil
}

func (f *fakePayments) ValidatePreCheckout(context.Context, model.PreCheckoutQuery) usecase.PreCheckoutVerdict {
	return f.verdict
}

func (f *fakePayments) HandleSuccessfulPayment(context.Context, int64, model.SuccessfulPayment) (bool, *model.PurchaseIntent, error) {
	return f.won, f.intent, f.successErr
}

type fakeUsers struct {
	touched     int
	memberships []*model.MembershipChange
}

func (f *fakeUsers) Touch(context.Context, *model.Message) error { f.touched++; return nil }

func (f *fakeUsers) HandleMembership(_ context.Context, c *model.MembershipChange) error {
	f.memberships = append(f.memberships, c)
	return nil
}

// --- adapters ---

type fakeBackend struct {
	calls [][]adapter.Message
	reply string
}

func (f *fakeBackend) Complete(_ context.Context, transcript []adapter.Message) string {
	f.calls = append(f.calls, transcript)
	return f.reply
}

// fakeMessenger records every outbound call in order.
type fakeMessenger struct {
	events   []string
	sent     []adapter.SendMessageParams
	invoices []adapter.InvoiceParams
	answers  []string
	sendErrs []error
}

func (f *fakeMessenger) SendMessage(_ context.Context, p adapter.SendMessageParams) (int, error) {
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			f.events = append(f.events, "send-failed")
			return 0, err
		}
	}
	f.events = append(f.events, "send:"+p.Text)
	f.sent = append(f.sent, p)
	return len(f.sent), nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, id string) error {
	f.events = append(f.events, "answer:"+id)
	return nil
}

func (f *fakeMessenger) ClearInlineKeyboard(_ context.Context, chatID int64, msgID int) error {
	f.events = append(f.events, fmt.Sprintf("clear:%d:%d", chatID, msgID))
	return nil
}

func (f *fakeMessenger) SendInvoice(_ context.Context, p adapter.InvoiceParams) error {
	f.events = append(f.events, "invoice:"+p.Payload)
	f.invoices = append(f.invoices, p)
	return nil
}

func (f *fakeMessenger) AnswerPreCheckout(_ context.Context, id string, ok bool, msg string) error {
	f.answers = append(f.answers, fmt.Sprintf("%s:%v:%s", id, ok, msg))
	return nil
}

func (f *fakeMessenger) lastText() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].Text
}

// keyTranslator echoes keys, joining any args with "|".
type keyTranslator struct{}

func (keyTranslator) T(key string, args ...interface{}) string {
	if len(args) == 0 {
		return key
	}
	parts := []string{key}
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, "|")
}

type fakeFlood struct {
	deny bool
	err  error
	keys []string
}

func (f *fakeFlood) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return !f.deny, f.err
}

// --- ingestor collaborators ---

type fetchStep struct {
	updates []model.Update
	err     error
}

// scriptedSource replays steps, then cancels the run.
type scriptedSource struct {
	steps   []fetchStep
	offsets []int64
	cancel  context.CancelFunc
}

func (s *scriptedSource) FetchUpdates(ctx context.Context, offset int64, _ time.Duration) ([]model.Update, error) {
	s.offsets = append(s.offsets, offset)
	if len(s.steps) == 0 {
		s.cancel()
		return nil, ctx.Err()
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.updates, step.err
}

type memDedup struct {
	mu      sync.Mutex
	marked  map[int64]bool
	removed []int64
}

func newMemDedup() *memDedup { return &memDedup{marked: map[int64]bool{}} }

func (d *memDedup) TryMark(_ context.Context, id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.marked[id] {
		return false
	}
	d.marked[id] = true
	return true
}

func (d *memDedup) Remove(_ context.Context, id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.marked, id)
	d.removed = append(d.removed, id)
}

func (d *memDedup) Prune(context.Context) (int64, error) { return 0, nil }

type funcDispatcher func(ctx context.Context, u model.Update) DispatchResult

func (f funcDispatcher) Dispatch(ctx context.Context, u model.Update) DispatchResult {
	return f(ctx, u)
}

type fakeLock struct {
	held       bool
	refreshErr error
	unlocked   bool
	// loseAfter > 0 fails every refresh past that many.
	loseAfter  int
	refreshes  int
	ttls       []time.Duration
}

func (l *fakeLock) TryLock(context.Context, string, time.Duration) (string, error) {
	if l.held {
		return "", domain.ErrLockNotAcquired
	}
	return "token", nil
}

func (l *fakeLock) Refresh(_ context.Context, _, _ string, ttl time.Duration) error {
	l.refreshes++
	l.ttls = append(l.ttls, ttl)
	if l.loseAfter > 0 && l.refreshes > l.loseAfter {
		return domain.ErrLockNotAcquired
	}
	return l.refreshErr
}

func (l *fakeLock) Unlock(context.Context, string, string) error {
	l.unlocked = true
	return nil
}

func msgUpdate(id, userID int64, text string) model.Update {
	return model.Update{ID: id, Kind: model.UpdateMessage, Message: &model.Message{ChatID: userID, UserID: userID, Text: text}}
}
