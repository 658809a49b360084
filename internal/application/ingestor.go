package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain"
	"telegram-nutrition-bot/internal/domain/model"
	"telegram-nutrition-bot/internal/domain/ports/adapter"
	"telegram-nutrition-bot/internal/infra/logging"
	"telegram-nutrition-bot/internal/infra/metrics"
	"telegram-nutrition-bot/internal/usecase"
)

const (
	initialBackoff = time.Second
	// lockGrace outlasts one long-poll or one slow update: three timed-out
	// backend attempts plus backoff.
	lockGrace      = 4 * time.Minute
)

type IngestorConfig struct {
	PollTimeout time.Duration
	IdleDelay   time.Duration
	MaxBackoff  time.Duration
	// LockKey enables the single-poller guard when a PollLock is supplied.
	LockKey     string
}

// Ingestor pulls updates with explicit offsets, deduplicates them and hands
// each one to the dispatcher in order.
type Ingestor struct {
	source     adapter.UpdateSource
	dedup      usecase.DedupUseCase
	dispatcher Dispatcher
	lock       PollLock
	cfg        IngestorConfig
	offset     int64
	lockToken  string
	sleep      func(ctx context.Context, d time.Duration) error
	log        *zerolog.Logger
}

func NewIngestor(source adapter.UpdateSource, dedup usecase.DedupUseCase, dispatcher Dispatcher, lock PollLock, cfg IngestorConfig, logger *zerolog.Logger) *Ingestor {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if cfg.IdleDelay <= 0 {
		cfg.IdleDelay = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	l := logger.With().Str("component", "UpdateIngestor").Logger()
	return &Ingestor{
		source:     source,
		dedup:      dedup,
		dispatcher: dispatcher,
		lock:       lock,
		cfg:        cfg,
		sleep:      sleepCtx,
		log:        &l,
	}
}

// Offset is the next update id to request.
func (i *Ingestor) Offset() int64 { return i.offset }

// Run polls until ctx ends or another consumer is detected. A polling
// conflict is returned as domain.ErrPollingConflict; other fetch errors are
// retried with exponential backoff.
func (i *Ingestor) Run(ctx context.Context) error {
	release, err := i.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	i.log.Info().Dur("poll_timeout", i.cfg.PollTimeout).Msg("update ingestor started")
	backoff := time.Duration(0)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := i.refresh(ctx); err != nil {
			return err
		}

		updates, err := i.source.FetchUpdates(ctx, i.offset, i.cfg.PollTimeout)
		if err != nil {
			if errors.Is(err, domain.ErrPollingConflict) {
				metrics.IncPollError("conflict")
				i.log.Error().Err(err).Msg("another consumer holds the update stream")
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff, i.cfg.MaxBackoff)
			metrics.IncPollError("transient")
			i.log.Warn().Err(err).Dur("backoff", backoff).Msg("fetch updates failed")
			if err := i.sleep(ctx, backoff); err != nil {
				return err
			}
			continue
		}
		backoff = 0

		if len(updates) == 0 {
			if err := i.sleep(ctx, i.cfg.IdleDelay); err != nil {
				return err
			}
			continue
		}
		for _, u := range updates {
			if err := i.refresh(ctx); err != nil {
				return err
			}
			i.Process(ctx, u)
		}
	}
}

// Process handles one update. The offset moves past it before dispatch, so
// a crashing handler cannot wedge the stream.
func (i *Ingestor) Process(ctx context.Context, u model.Update) DispatchResult {
	if u.ID >= i.offset {
		i.offset = u.ID + 1
	}

	ctx = logging.WithTraceID(ctx, uuid.NewString())
	ctx = logging.WithUpdateID(ctx, u.ID)
	if uid := u.UserID(); uid != 0 {
		ctx = logging.WithTgID(ctx, uid)
	}
	if cid := u.ChatID(); cid != 0 {
		ctx = logging.WithChatID(ctx, cid)
	}
	log := logging.With(ctx, i.log)
	defer logging.TraceDuration(log, "Ingestor.Process")()
	kind := u.Kind.String()
	start := time.Now()

	var res DispatchResult
	if !i.dedup.TryMark(ctx, u.ID) {
		res = DispatchResult{Status: StatusDuplicate}
	} else {
		res = i.dispatch(ctx, u)
	}

	metrics.IncUpdate(kind, res.Status.String())
	metrics.ObserveUpdateHandle(kind, time.Since(start).Seconds())
	switch res.Status {
	case StatusFailed:
		i.dedup.Remove(ctx, u.ID)
		log.Error().Err(res.Err).Str("kind", kind).Msg("update handling failed")
	case StatusDuplicate:
		log.Debug().Str("kind", kind).Msg("duplicate update skipped")
	case StatusIgnored:
		log.Debug().Str("kind", kind).Msg("update ignored")
	case StatusHandled:
	}
	return res
}

// dispatch converts a handler panic into a failed result.
func (i *Ingestor) dispatch(ctx context.Context, u model.Update) (res DispatchResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = failed(fmt.Errorf("panic while handling update %d: %v", u.ID, rec))
		}
	}()
	return i.dispatcher.Dispatch(ctx, u)
}

func (i *Ingestor) acquire(ctx context.Context) (func(), error) {
	if i.lock == nil || i.cfg.LockKey == "" {
		return func() {}, nil
	}
	token, err := i.lock.TryLock(ctx, i.cfg.LockKey, i.lockTTL())
	if errors.Is(err, domain.ErrLockNotAcquired) {
		return nil, fmt.Errorf("%w: poller lock %s is held", domain.ErrPollingConflict, i.cfg.LockKey)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire poller lock: %w", err)
	}
	i.lockToken = token
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := i.lock.Unlock(ctx, i.cfg.LockKey, token); err != nil {
			i.log.Warn().Err(err).Msg("release poller lock")
		}
	}, nil
}

func (i *Ingestor) refresh(ctx context.Context) error {
	if i.lockToken == "" {
		return nil
	}
	err := i.lock.Refresh(ctx, i.cfg.LockKey, i.lockToken, i.lockTTL())
	if errors.Is(err, domain.ErrLockNotAcquired) {
		return fmt.Errorf("%w: poller lock %s lost", domain.ErrPollingConflict, i.cfg.LockKey)
	}
	if err != nil {
		i.log.Warn().Err(err).Msg("refresh poller lock")
	}
	return nil
}

func (i *Ingestor) lockTTL() time.Duration {
	return i.cfg.PollTimeout + lockGrace
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	if cur <= 0 {
		return initialBackoff
	}
	next := cur * 2
	if next > limit {
		return limit
	}
	return next
}
