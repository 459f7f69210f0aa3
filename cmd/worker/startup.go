// cmd/worker/startup.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"epay-gateway/pkg/container"
	"epay-gateway/pkg/logger"
)

// healthCheck is one named readiness probe.
type healthCheck struct {
	name string
	fn   func(ctx context.Context) error
}

// healthServer serves /health and /ready for the worker process.
type healthServer struct {
	srv    *http.Server
	checks []healthCheck
}

// startServices performs startup checks and starts the health endpoint
func startServices(c *container.Container) (*healthServer, error) {
	logger.Info("============================================", nil)
	logger.Info("🚀 Epay Worker Starting...", map[string]interface{}{
		"reconcile_mode": c.Config.Reconcile.Mode,
	})
	logger.Info("============================================", nil)

	h := newHealthServer(":"+c.Config.Worker.HealthPort, []healthCheck{
		{"Redis Connection", c.Redis.HealthCheck},
		{"Database Connection", c.DB.Ping},
	})

	if err := h.checkAll(context.Background()); err != nil {
		return nil, err
	}

	go func() {
		logger.Info("[Health] Starting health check server", map[string]interface{}{"addr": h.srv.Addr})
		if err := h.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("[Health] Failed to start", err)
		}
	}()

	return h, nil
}

func newHealthServer(addr string, checks []healthCheck) *healthServer {
	h := &healthServer{checks: checks}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.healthHandler)
	mux.HandleFunc("/ready", h.readyHandler)

	h.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// checkAll runs all health checks
func (h *healthServer) checkAll(ctx context.Context) error {
	for _, check := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := check.fn(checkCtx)
		cancel()
		if err != nil {
			logger.ErrorWithFields("❌ Check failed", err, map[string]interface{}{"check": check.name})
			return fmt.Errorf("%s failed: %w", check.name, err)
		}
		logger.Info("✓ Check passed", map[string]interface{}{"check": check.name})
	}
	return nil
}

// healthHandler handles /health (liveness)
func (h *healthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP", "service": "epay-worker"})
}

// readyHandler handles /ready (Kubernetes readiness probe)
func (h *healthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.checkAll(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "NOT_READY", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "READY"})
}

func (h *healthServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.srv.Shutdown(ctx); err != nil {
		logger.Error("[Health] Shutdown failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
