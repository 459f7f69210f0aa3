package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"epay-gateway/internal/domains/payment/handler"
	"epay-gateway/internal/shared/middleware"
	"epay-gateway/internal/shared/response"
	"epay-gateway/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupPaymentRoutes(v1, c.PaymentHandler)
		setupAdminPaymentRoutes(v1, c.PaymentHandler, middleware.AuthMiddleware(c.JWTManager))
	}

	return router
}

// ========================================
// PAYMENT ROUTES
// ========================================
func setupPaymentRoutes(v1 *gin.RouterGroup, h *handler.PaymentHandler) {
	payments := v1.Group("/payments/epay")
	{
		payments.GET("/method", h.Method)
		payments.POST("/pay", h.Pay)

		// Gateway callback: GET with query string or POST form
		payments.GET("/notify", h.Notify)
		payments.POST("/notify", h.Notify)
	}
}

// ========================================
// ADMIN PAYMENT ROUTES
// ========================================
func setupAdminPaymentRoutes(v1 *gin.RouterGroup, h *handler.PaymentHandler, auth gin.HandlerFunc) {
	admin := v1.Group("/admin/payments/epay")
	admin.Use(auth, middleware.AdminMiddleware())
	{
		admin.POST("/reconcile", h.AdminReconcile)
		admin.GET("/orders/:trade_no", h.AdminCheckOrder)
		admin.POST("/config/refresh", h.AdminRefreshConfig)
	}
}

// ========================================
// HEALTH CHECK
// ========================================
func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
		defer cancel()

		status := gin.H{
			"service":  c.Config.App.Name,
			"version":  c.Config.App.Version,
			"database": "ok",
			"redis":    "ok",
		}
		healthy := true

		if err := c.DB.Ping(checkCtx); err != nil {
			status["database"] = err.Error()
			healthy = false
		}
		if err := c.Redis.HealthCheck(checkCtx); err != nil {
			// Redis chỉ phục vụ cache + queue, không làm API down
			status["redis"] = err.Error()
		}

		if !healthy {
			response.Error(ctx, http.StatusServiceUnavailable, "UNHEALTHY", "database unavailable")
			return
		}
		response.Success(ctx, http.StatusOK, "OK", status)
	}
}
