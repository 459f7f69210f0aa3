package service

import (
	"context"

	"epay-gateway/internal/domains/payment/gateway/epay"
	"epay-gateway/internal/domains/payment/model"
)

// =====================================================
// PAYMENT SERVICE INTERFACE
// =====================================================
type PaymentService interface {
	// ============================================
	// CHECKOUT
	// ============================================

	// Method describes the gateway for the checkout page
	Method(ctx context.Context) (*model.PaymentMethodResponse, error)

	// Pay returns the signed redirect for an order
	Pay(ctx context.Context, req model.PayRequest) (*model.PayResponse, error)

	// ============================================
	// CALLBACK
	// ============================================

	// HandleCallback verifies a gateway notification and queues an active
	// check of the order. It never marks the order paid itself.
	HandleCallback(ctx context.Context, params *epay.Params) (*epay.CallbackResult, error)

	// ============================================
	// RECONCILIATION
	// ============================================

	// CheckOrder queries one order and marks it paid when confirmed
	CheckOrder(ctx context.Context, tradeNo string) (*model.OrderStatusResponse, error)

	// TriggerReconcile queues an out-of-band reconciliation cycle
	TriggerReconcile(ctx context.Context, requestedBy string) (*model.ReconcileTriggerResponse, error)

	// ============================================
	// SETTINGS
	// ============================================

	// RefreshConfig drops cached gateway settings and returns the reloaded
	// method description
	RefreshConfig(ctx context.Context, requestedBy string) (*model.PaymentMethodResponse, error)
}

// TaskEnqueuer pushes background work to the task queue.
type TaskEnqueuer interface {
	EnqueueCheckOrder(ctx context.Context, payload model.CheckOrderPayload) error
	EnqueueReconcile(ctx context.Context, payload model.ReconcilePendingPayload) (string, error)
}
