// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Completer is the reservation sweep run on schedule.
type Completer interface {
	AutoCompletePast(ctx context.Context) (int, error)
}

// Scheduler runs the periodic auto-completion sweep. It complements the lazy
// completion done on reads.
type Scheduler struct {
	cron      *cron.Cron
	completer Completer
	timeout   time.Duration
	logger    *zap.Logger
}

// NewScheduler registers the sweep under spec, a six-field cron expression
// (seconds first) evaluated in UTC.
func NewScheduler(spec string, completer Completer, logger *zap.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron:      c,
		completer: completer,
		timeout:   2 * time.Minute,
		logger:    logger,
	}

	if _, err := s.cron.AddFunc(spec, s.CompletePastReservations); err != nil {
		return nil, fmt.Errorf("failed to register auto-complete job %q: %w", spec, err)
	}
	return s, nil
}

// CompletePastReservations is one sweep. Safe to call directly.
func (s *Scheduler) CompletePastReservations() {
	s.runWithRecovery("CompletePastReservations", func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		count, err := s.completer.AutoCompletePast(ctx)
		if err != nil {
			s.logger.Error("auto-complete sweep failed", zap.Error(err))
			return
		}
		s.logger.Info("auto-complete sweep finished", zap.Int("completed", count))
	})
}

func (s *Scheduler) runWithRecovery(name string, job func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled job panicked", zap.String("job", name), zap.Any("panic", r))
		}
	}()

	start := time.Now()
	job()
	s.logger.Debug("scheduled job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) Start() {
	s.logger.Info("starting cron scheduler")
	s.cron.Start()
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cron scheduler stopped")
}
