package repository

import (
	"context"
	"time"

	"epay-gateway/internal/domains/payment/model"
)

// =====================================================
// ORDER STORE INTERFACE
// =====================================================

// OrderStore is the host order table as seen by the reconciler.
type OrderStore interface {
	// EnabledChannelIDs lists enabled payment channels bound to gatewayCode
	EnabledChannelIDs(ctx context.Context, gatewayCode string) ([]int64, error)

	// PendingOrders lists pending orders on channelIDs created at or after since
	PendingOrders(ctx context.Context, channelIDs []int64, since time.Time) ([]model.ReconciliationCandidate, error)

	// MarkPaid moves a pending order to paid exactly once
	MarkPaid(ctx context.Context, candidate model.ReconciliationCandidate, gatewayOrderID string) error

	// FindOrder loads one order by its host trade number
	FindOrder(ctx context.Context, tradeNo string) (*model.Order, error)
}
