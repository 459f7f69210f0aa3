package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"epay-gateway/internal/domains/payment/model"
	"epay-gateway/internal/shared"
	"epay-gateway/pkg/logger"
)

// Scheduler enqueues periodic tasks through Redis so that exactly one worker
// in a fleet picks each tick up. Used when RECONCILE_MODE=queue.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

func NewScheduler(redisOpt asynq.RedisClientOpt) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.WarnLevel,
		},
	)

	return &Scheduler{scheduler: scheduler}
}

// ================================================
// JOB: Reconcile pending epay orders (every minute)
// ================================================
func (s *Scheduler) RegisterReconcileJob() error {
	task := asynq.NewTask(shared.TypePaymentReconcilePending, nil)

	_, err := s.scheduler.Register(
		reconcileCronSpec(model.ReconcileInterval),
		task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(0),
		asynq.Timeout(reconcileTimeout),
		// A tick is dropped while the previous one is still queued.
		asynq.Unique(model.ReconcileInterval),
	)
	if err != nil {
		logger.Error("Failed to register ReconcilePending job", err)
		return err
	}

	logger.Info("✓ Registered ReconcilePending", map[string]interface{}{
		"interval": model.ReconcileInterval.String(),
	})
	return nil
}

func reconcileCronSpec(interval time.Duration) string {
	return "@every " + interval.String()
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
