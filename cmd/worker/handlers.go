package main

import (
	"github.com/hibiken/asynq"

	paymentJob "epay-gateway/internal/domains/payment/job"
	"epay-gateway/internal/shared"
	"epay-gateway/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	checkOrder       *paymentJob.CheckOrderHandler
	reconcilePending *paymentJob.ReconcilePendingHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		checkOrder:       paymentJob.NewCheckOrderHandler(c.PaymentService),
		reconcilePending: paymentJob.NewReconcilePendingHandler(c.Reconciler),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypePaymentCheckOrder, h.checkOrder.ProcessTask)
	mux.HandleFunc(shared.TypePaymentReconcilePending, h.reconcilePending.ProcessTask)
}
