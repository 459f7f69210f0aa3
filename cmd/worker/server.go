package main

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"epay-gateway/internal/shared"
	"epay-gateway/pkg/container"
	"epay-gateway/pkg/logger"
)

// asynqServer wraps asynq.Server with additional functionality
type asynqServer struct {
	*asynq.Server
}

// setupAsynqServer creates, configures and starts the Asynq server
func setupAsynqServer(ctx context.Context, c *container.Container, handlers *HandlerRegistry) *asynqServer {
	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	srv := asynq.NewServer(
		c.RedisOpt(),
		asynq.Config{
			Queues: map[string]int{
				shared.QueueCritical: 6,
				shared.QueueDefault:  3,
				shared.QueueLow:      1,
			},
			Concurrency: c.Config.Worker.Concurrency,
			BaseContext: func() context.Context { return ctx },
			// SkipRetry errors are expected outcomes (unknown order,
			// overlapping cycle) and do not count as failures.
			IsFailure: func(err error) bool {
				return !errors.Is(err, asynq.SkipRetry)
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.ErrorWithFields("[Asynq] ❌ Task failed", err, map[string]interface{}{
					"type": task.Type(),
				})
			}),
		},
	)

	go func() {
		logger.Info("[Worker] Starting...", map[string]interface{}{
			"concurrency": c.Config.Worker.Concurrency,
		})
		if err := srv.Run(mux); err != nil {
			logger.Error("[Worker] Failed", err)
		}
	}()

	return &asynqServer{Server: srv}
}

// Shutdown stops fetching new tasks and waits for active ones.
func (s *asynqServer) Shutdown() {
	logger.Info("[Worker] Shutting down...", nil)
	s.Server.Shutdown()
	logger.Info("[Worker] ✓ Gracefully stopped", nil)
}
