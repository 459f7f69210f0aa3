package main

import (
	"context"
	"fmt"
	"time"

	"epay-gateway/internal/config"
	"epay-gateway/internal/infrastructure/queue"
	"epay-gateway/pkg/container"
	"epay-gateway/pkg/logger"
)

// reconcileScheduler is whichever scheduler drives reconciliation cycles.
type reconcileScheduler interface {
	Shutdown()
}

// setupScheduler starts the reconciliation schedule for the configured mode.
// cron runs cycles in this process; queue enqueues a task every interval and
// lets any worker in the fleet pick it up.
func setupScheduler(ctx context.Context, c *container.Container) (reconcileScheduler, error) {
	switch c.Config.Reconcile.Mode {
	case config.ReconcileModeQueue:
		scheduler := queue.NewScheduler(c.RedisOpt())
		if err := scheduler.RegisterReconcileJob(); err != nil {
			return nil, fmt.Errorf("register reconcile job: %w", err)
		}
		logger.Info("[Scheduler] Starting asynq scheduler...", nil)
		if err := scheduler.Start(); err != nil {
			return nil, fmt.Errorf("start asynq scheduler: %w", err)
		}
		return &asynqScheduler{Scheduler: scheduler}, nil

	default:
		cron := queue.NewCronScheduler()
		if err := c.Reconciler.Schedule(ctx, cron); err != nil {
			return nil, fmt.Errorf("schedule reconciler: %w", err)
		}
		logger.Info("[Scheduler] Cron reconciler started", nil)
		return &cronScheduler{CronScheduler: cron}, nil
	}
}

// asynqScheduler wraps queue.Scheduler
type asynqScheduler struct {
	*queue.Scheduler
}

func (s *asynqScheduler) Shutdown() {
	logger.Info("[Scheduler] Shutting down...", nil)
	s.Scheduler.Shutdown()
	logger.Info("[Scheduler] ✓ Stopped", nil)
}

// cronScheduler wraps queue.CronScheduler
type cronScheduler struct {
	*queue.CronScheduler
}

func (s *cronScheduler) Shutdown() {
	logger.Info("[Scheduler] Waiting for running cycle...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Stop(ctx); err != nil {
		logger.Warn("[Scheduler] ⚠️ Shutdown timeout exceeded", map[string]interface{}{"error": err.Error()})
		return
	}
	logger.Info("[Scheduler] ✓ Stopped", nil)
}
