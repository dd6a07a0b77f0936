package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/wordladder/internal/infrastructure/config"
	"github.com/eslsoft/wordladder/internal/repository"
	"github.com/eslsoft/wordladder/internal/usecase"
)

const defaultInterval = time.Hour

// Scheduler periodically tops up every known user's active pool. Refill is
// idempotent, so a run never changes a pool that is already full.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pool      usecase.PoolUsecase
	progress  repository.ProgressRepository
	interval  time.Duration
	enabled   bool
	logger    logrus.FieldLogger
}

// New creates a new scheduler instance
func New(cfg *config.Config, pool usecase.PoolUsecase, progress repository.ProgressRepository, logger *logrus.Logger) *Scheduler {
	interval := cfg.Maintenance.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		pool:      pool,
		progress:  progress,
		interval:  interval,
		enabled:   cfg.Maintenance.Enabled,
		logger:    logger.WithField("component", "scheduler"),
	}
}

// Start schedules the refill job without blocking. It is a no-op when
// maintenance is disabled.
func (s *Scheduler) Start() error {
	if !s.enabled {
		return nil
	}
	if _, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.tick); err != nil {
		return fmt.Errorf("schedule pool refill: %w", err)
	}
	s.scheduler.StartAsync()
	s.logger.Infof("pool maintenance every %s", s.interval)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	if s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.WithError(err).Error("pool maintenance failed")
	}
}

// RunOnce refills every user's pool and reports how many words were added.
// A failure for one user is logged and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	users, err := s.progress.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	added := 0
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		records, err := s.pool.RefillPool(ctx, userID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("refill pool failed")
			continue
		}
		if len(records) > 0 {
			s.logger.WithFields(logrus.Fields{"user_id": userID, "added": len(records)}).Info("pool refilled")
		}
		added += len(records)
	}
	return added, nil
}
