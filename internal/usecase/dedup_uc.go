package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain/ports/repository"
	"telegram-nutrition-bot/internal/infra/metrics"
)

// Compile-time check
var _ DedupUseCase = (*dedupUC)(nil)

// DedupUseCase is the ledger of handled update ids.
type DedupUseCase interface {
	// TryMark reports whether updateID is new. Storage failures fail open.
	TryMark(ctx context.Context, updateID int64) bool
	// Remove forgets updateID so a redelivery is processed again.
	Remove(ctx context.Context, updateID int64)
	// Prune drops markers older than the retention window.
	Prune(ctx context.Context) (int64, error)
}

type dedupUC struct {
	repo       repository.ProcessedUpdateRepository
	retention  time.Duration
	pruneEvery int64
	marked     atomic.Int64
	now        func() time.Time
	log        *zerolog.Logger
}

func NewDedupUseCase(repo repository.ProcessedUpdateRepository, retention time.Duration, pruneEvery int64, logger *zerolog.Logger) *dedupUC {
	if pruneEvery <= 0 {
		pruneEvery = 100
	}
	l := logger.With().Str("component", "DedupLedger").Logger()
	return &dedupUC{
		repo:       repo,
		retention:  retention,
		pruneEvery: pruneEvery,
		now:        time.Now,
		log:        &l,
	}
}

func (u *dedupUC) TryMark(ctx context.Context, updateID int64) bool {
	created, err := u.repo.Insert(ctx, repository.NoTX, updateID, u.now())
	if err != nil {
		metrics.IncDedupStoreError()
		u.log.Warn().Err(err).Int64("update_id", updateID).Msg("dedup mark failed; treating update as new")
		return true
	}
	if created && u.marked.Add(1)%u.pruneEvery == 0 {
		if n, err := u.Prune(ctx); err != nil {
			u.log.Warn().Err(err).Msg("dedup prune failed")
		} else if n > 0 {
			u.log.Debug().Int64("pruned", n).Msg("dedup ledger pruned")
		}
	}
	return created
}

func (u *dedupUC) Remove(ctx context.Context, updateID int64) {
	if err := u.repo.Delete(ctx, repository.NoTX, updateID); err != nil {
		metrics.IncDedupStoreError()
		u.log.Warn().Err(err).Int64("update_id", updateID).Msg("dedup unmark failed")
	}
}

func (u *dedupUC) Prune(ctx context.Context) (int64, error) {
	if u.retention <= 0 {
		return 0, nil
	}
	return u.repo.DeleteOlderThan(ctx, repository.NoTX, u.now().Add(-u.retention))
}
