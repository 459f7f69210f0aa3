// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"epay-gateway/pkg/container"
	"epay-gateway/pkg/logger"
)

func main() {
	c, err := container.NewContainer()
	if err != nil {
		logger.Error("[Container] Failed to initialize", err)
		os.Exit(1)
	}
	defer c.Cleanup()

	// Cancelled on shutdown: stops the in-flight reconciliation cycle and
	// every task handler context.
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handlers := initializeHandlers(c)

	srv := setupAsynqServer(rootCtx, c, handlers)

	scheduler, err := setupScheduler(rootCtx, c)
	if err != nil {
		logger.Error("[Scheduler] Failed to start", err)
		os.Exit(1)
	}

	health, err := startServices(c)
	if err != nil {
		logger.Error("[Startup] Health check failed", err)
		os.Exit(1)
	}

	waitForShutdown(cancel, srv, scheduler, health)
}

func waitForShutdown(cancel context.CancelFunc, srv *asynqServer, scheduler reconcileScheduler, health *healthServer) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("[Shutdown] Gracefully stopping...", nil)
	cancel()
	scheduler.Shutdown()
	srv.Shutdown()
	health.Shutdown()
	logger.Info("[Shutdown] ✓ Stopped", nil)
}
