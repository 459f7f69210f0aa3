package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"epay-gateway/pkg/logger"
)

// CronScheduler runs in-process periodic tasks on robfig/cron. Each task is
// bound to the context passed to RunPeriodic and stops firing once it is done.
type CronScheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	started bool
}

func NewCronScheduler() *CronScheduler {
	return &CronScheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger{}),
		),
	}
}

// RunPeriodic registers task to fire every interval and starts the cron loop
// if needed. It does not block. With mutuallyExclusive set, a tick that
// arrives while the previous run is still going is dropped.
func (s *CronScheduler) RunPeriodic(ctx context.Context, interval time.Duration, mutuallyExclusive bool, task func(context.Context)) error {
	if interval < time.Second {
		return fmt.Errorf("cron interval must be at least 1s, got %s", interval)
	}

	id, err := s.cron.AddJob("@every "+interval.String(), s.wrap(ctx, mutuallyExclusive, task))
	if err != nil {
		return fmt.Errorf("register periodic task: %w", err)
	}

	go func() {
		<-ctx.Done()
		s.cron.Remove(id)
	}()

	s.mu.Lock()
	if !s.started {
		s.cron.Start()
		s.started = true
	}
	s.mu.Unlock()

	logger.Info("✓ Registered periodic task", map[string]interface{}{
		"interval":           interval.String(),
		"mutually_exclusive": mutuallyExclusive,
	})
	return nil
}

func (s *CronScheduler) wrap(ctx context.Context, mutuallyExclusive bool, task func(context.Context)) cron.Job {
	wrappers := []cron.JobWrapper{cron.Recover(cronLogger{})}
	if mutuallyExclusive {
		wrappers = append(wrappers, cron.SkipIfStillRunning(cronLogger{}))
	}

	return cron.NewChain(wrappers...).Then(cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		task(ctx)
	}))
}

// Stop halts the cron loop and waits for running tasks until ctx is done.
func (s *CronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron stop: %w", ctx.Err())
	}
}

// cronLogger routes robfig/cron output into the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	// cron reports every wake-up and schedule at info level
	if msg == "skip" {
		logger.Warn("cron: tick skipped, previous run still active", kvFields(keysAndValues))
	}
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.ErrorWithFields("cron: "+msg, err, kvFields(keysAndValues))
}

func kvFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
