package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PeakResetScheduler fires the occupancy manager's daily peak reset
// once per business day at a fixed hour. It runs as a background
// goroutine and is safe to stop via its context or the Stop method.
type PeakResetScheduler struct {
	occupancy *OccupancyManager
	resetHour int // 0–23, local time
	logger    zerolog.Logger
	cancel    context.CancelFunc
	done      chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

func NewPeakResetScheduler(om *OccupancyManager, resetHour int, logger zerolog.Logger) *PeakResetScheduler {
	if resetHour < 0 || resetHour > 23 {
		resetHour = 4
	}
	return &PeakResetScheduler{
		occupancy: om,
		resetHour: resetHour,
		logger:    logger,
		done:      make(chan struct{}),
		now:       time.Now,
	}
}

// Start begins the background loop. The first reset fires at the next
// occurrence of the configured hour.
func (s *PeakResetScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	s.logger.Info().Int("reset_hour", s.resetHour).Msg("peak reset scheduler started")
}

// Stop signals the scheduler to exit and waits for it to finish.
func (s *PeakResetScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *PeakResetScheduler) loop(ctx context.Context) {
	defer close(s.done)

	for {
		wait := time.Until(s.nextReset(s.now()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			now := s.now()
			s.occupancy.ResetDailyPeaks(now)
			s.logger.Info().Time("at", now).Msg("daily occupancy peaks reset")
		}
	}
}

// nextReset returns the next occurrence of the reset hour strictly
// after now.
func (s *PeakResetScheduler) nextReset(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.resetHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
