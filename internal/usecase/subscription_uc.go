// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain"
	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/repository"
	"telegram-nutrition-bot/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// ReminderNotifier delivers an expiry reminder to the user.
type ReminderNotifier interface {
	NotifyExpiring(ctx context.Context, userID int64, kind model.ReminderKind, until time.Time) error
}

type SubscriptionUseCase interface {
	IsActive(ctx context.Context, userID int64) (bool, error)
	// Get returns domain.ErrNotFound when the user never subscribed.
	Get(ctx context.Context, userID int64) (*model.SubscriptionGrant, error)
	// GrantDays extends the subscription and clears reminder marks in one tx.
	GrantDays(ctx context.Context, userID int64, days int) (time.Time, error)
	// SweepReminders sends each 1d/2d reminder at most once and returns the count sent.
	SweepReminders(ctx context.Context) (int, error)
}

type subscriptionUC struct {
	subs      repository.SubscriptionRepository
	reminders repository.ReminderRepository
	tm        repository.TransactionManager
	notifier  ReminderNotifier
	window    time.Duration
	now       func() time.Time
	log       *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	reminders repository.ReminderRepository,
	tm repository.TransactionManager,
	notifier ReminderNotifier,
	window time.Duration,
	logger *zerolog.Logger,
) *subscriptionUC {
	if window <= 0 {
		window = time.Hour
	}
	l := logger.With().Str("component", "SubscriptionStore").Logger()
	return &subscriptionUC{
		subs:      subs,
		reminders: reminders,
		tm:        tm,
		notifier:  notifier,
		window:    window,
		now:       time.Now,
		log:       &l,
	}
}

// SetNotifier wires the reminder channel after construction; the notifier
// usually depends on components built later.
func (u *subscriptionUC) SetNotifier(n ReminderNotifier) { u.notifier = n }

func (u *subscriptionUC) Get(ctx context.Context, userID int64) (*model.SubscriptionGrant, error) {
	return u.subs.FindByUser(ctx, repository.NoTX, userID)
}

func (u *subscriptionUC) IsActive(ctx context.Context, userID int64) (bool, error) {
	g, err := u.subs.FindByUser(ctx, repository.NoTX, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return g.IsActive(u.now()), nil
}

func (u *subscriptionUC) GrantDays(ctx context.Context, userID int64, days int) (time.Time, error) {
	if days <= 0 {
		return time.Time{}, domain.ErrInvalidArgument
	}
	var until time.Time
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		until, err = u.subs.Extend(ctx, tx, userID, u.now(), days)
		if err != nil {
			return err
		}
		return u.reminders.ClearForUser(ctx, tx, userID)
	})
	if err != nil {
		return time.Time{}, err
	}
	metrics.IncSubscriptionGranted()
	u.log.Info().Int64("tg_id", userID).Int("days", days).Time("until", until).Msg("subscription granted")
	return until, nil
}

func (u *subscriptionUC) SweepReminders(ctx context.Context) (int, error) {
	now := u.now()
	sent := 0
	var firstErr error
	for _, kind := range model.ReminderKinds() {
		from, to := kind.Window(now, u.window)
		grants, err := u.subs.ListExpiringBetween(ctx, repository.NoTX, from, to)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, g := range grants {
			created, err := u.reminders.MarkSent(ctx, repository.NoTX, g.UserID, kind)
			if err != nil {
				u.log.Error().Err(err).Int64("tg_id", g.UserID).Str("kind", string(kind)).Msg("reminder mark failed")
				continue
			}
			if !created {
				continue
			}
			if u.notifier == nil {
				continue
			}
			if err := u.notifier.NotifyExpiring(ctx, g.UserID, kind, g.Until); err != nil {
				u.log.Warn().Err(err).Int64("tg_id", g.UserID).Str("kind", string(kind)).Msg("reminder delivery failed")
				continue
			}
			metrics.IncReminderSent(string(kind))
			sent++
		}
	}
	return sent, firstErr
}
