package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ReminderSweeper is the slice of the subscription use case the worker runs.
type ReminderSweeper interface {
	SweepReminders(ctx context.Context) (int, error)
}

// ReminderWorker periodically sends subscription expiry reminders. It sweeps
// once at start so a restart does not delay reminders by a full interval.
type ReminderWorker struct {
	interval time.Duration
	subs     ReminderSweeper
	log      *zerolog.Logger
}

func NewReminderWorker(interval time.Duration, subs ReminderSweeper, logger *zerolog.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	l := logger.With().Str("component", "ReminderWorker").Logger()
	return &ReminderWorker{
		interval: interval,
		subs:     subs,
		log:      &l,
	}
}

func (w *ReminderWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting reminder worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping reminder worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ReminderWorker) sweep(ctx context.Context) {
	n, err := w.subs.SweepReminders(ctx)
	if err != nil && ctx.Err() == nil {
		w.log.Error().Err(err).Msg("reminder sweep error")
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("expiry reminders sent")
	}
}
