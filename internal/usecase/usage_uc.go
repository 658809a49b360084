package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain"
	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/repository"
	"telegram-nutrition-bot/internal/infra/metrics"
)

// Compile-time check
var _ UsageUseCase = (*usageUC)(nil)

// UsageUseCase is the free-tier quota gate.
type UsageUseCase interface {
	Allow(ctx context.Context, userID int64, isAdmin bool) (bool, error)
	// Consume atomically re-checks the limits and spends one turn.
	Consume(ctx context.Context, userID int64, isAdmin bool) (bool, error)
	// Remaining returns turns left; model.Unlimited marks a disabled dimension.
	Remaining(ctx context.Context, userID int64) (daily, total int, err error)
}

type usageUC struct {
	usage     repository.UsageRepository
	subs      SubscriptionUseCase
	limits    model.UsageLimits
	unlimited map[int64]struct{}
	loc       *time.Location
	now       func() time.Time
	log       *zerolog.Logger
}

func NewUsageUseCase(usage repository.UsageRepository, subs SubscriptionUseCase, limits model.UsageLimits, unlimitedIDs []int64, loc *time.Location, logger *zerolog.Logger) *usageUC {
	set := make(map[int64]struct{}, len(unlimitedIDs))
	for _, id := range unlimitedIDs {
		set[id] = struct{}{}
	}
	if loc == nil {
		loc = time.UTC
	}
	l := logger.With().Str("component", "UsageGate").Logger()
	return &usageUC{usage: usage, subs: subs, limits: limits, unlimited: set, loc: loc, now: time.Now, log: &l}
}

// bypass covers admins, the allow-list and active subscribers.
func (u *usageUC) bypass(ctx context.Context, userID int64, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	if _, ok := u.unlimited[userID]; ok {
		return true
	}
	active, err := u.subs.IsActive(ctx, userID)
	if err != nil {
		u.log.Warn().Err(err).Int64("tg_id", userID).Msg("subscription lookup failed; applying free-tier limits")
		return false
	}
	return active
}

func (u *usageUC) counter(ctx context.Context, userID int64) (*model.UsageCounter, error) {
	c, err := u.usage.FindByUser(ctx, repository.NoTX, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &model.UsageCounter{UserID: userID}, nil
	}
	return c, err
}

func (u *usageUC) Allow(ctx context.Context, userID int64, isAdmin bool) (bool, error) {
	if u.bypass(ctx, userID, isAdmin) {
		return true, nil
	}
	c, err := u.counter(ctx, userID)
	if err != nil {
		return false, err
	}
	return c.Allows(u.limits, model.DayStart(u.now(), u.loc)), nil
}

func (u *usageUC) Consume(ctx context.Context, userID int64, isAdmin bool) (bool, error) {
	if u.bypass(ctx, userID, isAdmin) {
		return true, nil
	}
	ok, err := u.usage.TryConsume(ctx, repository.NoTX, userID, model.DayStart(u.now(), u.loc), u.limits)
	if err != nil {
		return false, err
	}
	if !ok {
		metrics.IncUsageDenied()
	}
	return ok, nil
}

func (u *usageUC) Remaining(ctx context.Context, userID int64) (int, int, error) {
	c, err := u.counter(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	daily, total := c.Remaining(u.limits, model.DayStart(u.now(), u.loc))
	return daily, total, nil
}
