package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthServer(t *testing.T) {
	var redisErr error
	h := newHealthServer(":0", []healthCheck{
		{"Redis Connection", func(ctx context.Context) error { return redisErr }},
		{"Database Connection", func(ctx context.Context) error { return nil }},
	})

	t.Run("health is always up", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"UP","service":"epay-worker"}`, w.Body.String())
	})

	t.Run("ready", func(t *testing.T) {
		redisErr = nil
		w := httptest.NewRecorder()
		h.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "READY")
	})

	t.Run("not ready when a dependency is down", func(t *testing.T) {
		redisErr = errors.New("connection refused")
		w := httptest.NewRecorder()
		h.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "Redis Connection")
	})
}
