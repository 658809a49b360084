package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain"
	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// --- processed updates ---

type memProcessedRepo struct {
	mu        sync.Mutex
	seen      map[int64]time.Time
	insertErr error
	pruned    int
}

func newMemProcessedRepo() *memProcessedRepo {
	return &memProcessedRepo{seen: map[int64]time.Time{}}
}

func (m *memProcessedRepo) Insert(ctx context.Context, tx repository.Tx, updateID int64, seenAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return false, m.insertErr
	}
	if _, ok := m.seen[updateID]; ok {
		return false, nil
	}
	m.seen[updateID] = seenAt
	return true, nil
}

func (m *memProcessedRepo) Delete(ctx context.Context, tx repository.Tx, updateID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, updateID)
	return nil
}

func (m *memProcessedRepo) DeleteOlderThan(ctx context.Context, tx repository.Tx, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned++
	var n int64
	for id, at := range m.seen {
		if at.Before(before) {
			delete(m.seen, id)
			n++
		}
	}
	return n, nil
}

// --- usage ---

type memUsageRepo struct {
	mu       sync.Mutex
	counters map[int64]*model.UsageCounter
}

func newMemUsageRepo() *memUsageRepo {
	return &memUsageRepo{counters: map[int64]*model.UsageCounter{}}
}

func (m *memUsageRepo) FindByUser(ctx context.Context, tx repository.Tx, userID int64) (*model.UsageCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memUsageRepo) TryConsume(ctx context.Context, tx repository.Tx, userID int64, day time.Time, limits model.UsageLimits) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// stored like a postgres DATE: midnight UTC of the calendar date
	date := model.CalendarDay(day)
	c, ok := m.counters[userID]
	if !ok {
		c = &model.UsageCounter{UserID: userID, Day: date}
		m.counters[userID] = c
	}
	if !c.Allows(limits, day) {
		return false, nil
	}
	if c.Day.Before(date) {
		c.Day = date
		c.DailyUsed = 0
	}
	c.DailyUsed++
	c.TotalUsed++
	return true, nil
}

// --- subscriptions & reminders ---

type memSubRepo struct {
	mu     sync.Mutex
	grants map[int64]*model.SubscriptionGrant
	err    error
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{grants: map[int64]*model.SubscriptionGrant{}}
}

func (m *memSubRepo) FindByUser(ctx context.Context, tx repository.Tx, userID int64) (*model.SubscriptionGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	g, ok := m.grants[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memSubRepo) Extend(ctx context.Context, tx repository.Tx, userID int64, now time.Time, days int) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current *time.Time
	if g, ok := m.grants[userID]; ok {
		current = &g.Until
	}
	until := model.ExtendFrom(current, now, days)
	m.grants[userID] = &model.SubscriptionGrant{UserID: userID, Until: until, UpdatedAt: now}
	return until, nil
}

func (m *memSubRepo) ListExpiringBetween(ctx context.Context, tx repository.Tx, from, to time.Time) ([]*model.SubscriptionGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SubscriptionGrant
	for _, g := range m.grants {
		if !g.Until.Before(from) && g.Until.Before(to) {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memReminderRepo struct {
	mu    sync.Mutex
	marks map[int64]map[model.ReminderKind]bool
}

func newMemReminderRepo() *memReminderRepo {
	return &memReminderRepo{marks: map[int64]map[model.ReminderKind]bool{}}
}

func (m *memReminderRepo) MarkSent(ctx context.Context, tx repository.Tx, userID int64, kind model.ReminderKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marks[userID] == nil {
		m.marks[userID] = map[model.ReminderKind]bool{}
	}
	if m.marks[userID][kind] {
		return false, nil
	}
	m.marks[userID][kind] = true
	return true, nil
}

func (m *memReminderRepo) ClearForUser(ctx context.Context, tx repository.Tx, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.marks, userID)
	return nil
}

// MockTxManager runs fn without a real transaction.
type MockTxManager struct {
	calls int
	err   error
}

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	return fn(ctx, nil)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []model.ReminderKind
	users []int64
	err   error
}

func (n *recordingNotifier) NotifyExpiring(ctx context.Context, userID int64, kind model.ReminderKind, until time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, kind)
	n.users = append(n.users, userID)
	return n.err
}

// stubSubs answers IsActive from a fixed set.
type stubSubs struct {
	SubscriptionUseCase
	active map[int64]bool
	err    error
}

func (s *stubSubs) IsActive(ctx context.Context, userID int64) (bool, error) {
	return s.active[userID], s.err
}

// --- purchases ---

type memPurchaseRepo struct {
	mu      sync.Mutex
	intents map[string]*model.PurchaseIntent
	findErr error
}

func newMemPurchaseRepo() *memPurchaseRepo {
	return &memPurchaseRepo{intents: map[string]*model.PurchaseIntent{}}
}

func (m *memPurchaseRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.PurchaseIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.intents[p.Payload]; ok {
		if cur.Status == model.PurchaseInvoice {
			cur.AmountMinor, cur.Currency, cur.Days = p.AmountMinor, p.Currency, p.Days
		}
		return nil
	}
	cp := *p
	cp.Status = model.PurchaseInvoice
	m.intents[p.Payload] = &cp
	return nil
}

func (m *memPurchaseRepo) FindByPayload(ctx context.Context, tx repository.Tx, payload string) (*model.PurchaseIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	p, ok := m.intents[payload]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPurchaseRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, payload string, from []model.PurchaseStatus, to model.PurchaseStatus, reason *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.intents[payload]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if p.Status == s {
			p.Status = to
			if reason != nil {
				r := *reason
				p.FailureReason = &r
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *memPurchaseRepo) MarkPaid(ctx context.Context, tx repository.Tx, payload string, telegramChargeID, providerChargeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.intents[payload]
	if !ok || !p.Status.CanTransition(model.PurchasePaid) {
		return false, nil
	}
	p.Status = model.PurchasePaid
	p.TelegramChargeID = &telegramChargeID
	p.ProviderChargeID = &providerChargeID
	return true, nil
}

func (m *memPurchaseRepo) status(payload string) model.PurchaseStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intents[payload].Status
}

// --- users ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[int64]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[int64]*model.User{}}
}

func (m *memUserRepo) Touch(ctx context.Context, tx repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	cp.Status = model.UserActive
	m.users[u.TelegramID] = &cp
	return nil
}

func (m *memUserRepo) UpdateStatus(ctx context.Context, tx repository.Tx, telegramID int64, status model.UserStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[telegramID]
	if !ok {
		u = &model.User{TelegramID: telegramID}
		m.users[telegramID] = u
	}
	u.Status = status
	return nil
}

func (m *memUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, telegramID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[telegramID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

var errBoom = errors.New("boom")
