package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

// ReminderRunner is the pass a Scheduler drives.
type ReminderRunner interface {
	RunOnce(ctx context.Context, now time.Time) (*domain.RunReport, error)
}

// Scheduler runs the reminder engine on a fixed interval.
type Scheduler struct {
	runner   ReminderRunner
	clock    port.Clock
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewScheduler creates a scheduler. Each pass is bounded by timeout; a zero
// timeout defaults to the interval.
func NewScheduler(runner ReminderRunner, clock port.Clock, interval, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 {
		timeout = interval
	}
	return &Scheduler{
		runner:   runner,
		clock:    clock,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Run blocks, triggering a pass immediately and then on every tick, until
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("reminder scheduler started", zap.Duration("interval", s.interval))
	for {
		s.tick(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) tick(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if _, err := s.runner.RunOnce(ctx, s.clock.Now()); err != nil {
		if errors.Is(err, context.Canceled) && parent.Err() != nil {
			return
		}
		s.logger.Warn("scheduled reminder run failed", zap.Error(err))
	}
}
