package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// =====================================================
// PAY REQUEST/RESPONSE
// =====================================================

// PayRequest is what the host checkout sends when a customer picks this
// gateway. Amount is in minor units.
type PayRequest struct {
	TradeNo     string `json:"trade_no" binding:"required"`
	TotalAmount int64  `json:"total_amount" binding:"required"`
	NotifyURL   string `json:"notify_url" binding:"required"`
	ReturnURL   string `json:"return_url" binding:"required"`
}

func (r *PayRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TradeNo, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.TotalAmount, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.NotifyURL, validation.Required, is.URL),
		validation.Field(&r.ReturnURL, validation.Required, is.URL),
	)
}

type PayResponse struct {
	// Type 1 tells the host frontend to redirect to Data.
	Type int    `json:"type"`
	Data string `json:"data"`
}

// PaymentMethodResponse is what the host checkout shows for this gateway.
type PaymentMethodResponse struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Enabled bool   `json:"enabled"`
}

// =====================================================
// ORDER STATUS RESPONSE (admin)
// =====================================================

type OrderStatusResponse struct {
	TradeNo    string      `json:"trade_no"`
	Status     QueryStatus `json:"status"`
	CallbackNo string      `json:"callback_no,omitempty"`
	MarkedPaid bool        `json:"marked_paid"`
	Error      string      `json:"error,omitempty"`
}

// =====================================================
// TASK PAYLOADS
// =====================================================

// CheckOrderPayload asks the worker to actively query a single order.
type CheckOrderPayload struct {
	TradeNo string `json:"trade_no"`
	Source  string `json:"source"`
}

// ReconcileTriggerResponse is returned when an admin queues a cycle.
type ReconcileTriggerResponse struct {
	TaskID string `json:"task_id"`
}

// ReconcilePendingPayload triggers an out-of-band reconciliation cycle.
type ReconcilePendingPayload struct {
	RequestedBy string `json:"requested_by"`
}
