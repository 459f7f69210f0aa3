package model

import "time"

// =====================================================
// RECONCILIATION CANDIDATE
// =====================================================

// ReconciliationCandidate is a pending order eligible for an active query.
// It is read fresh from the order store on every cycle.
type ReconciliationCandidate struct {
	MerchantOrderID  string    `json:"trade_no" db:"trade_no"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	PaymentChannelID int64     `json:"payment_id" db:"payment_id"`
}

// InWindow reports whether the candidate was created at or after now-window.
func (c ReconciliationCandidate) InWindow(now time.Time, window time.Duration) bool {
	return !c.CreatedAt.Before(now.Add(-window))
}

// =====================================================
// RECONCILE REPORT
// =====================================================

// ReconcileReport summarizes one reconciliation cycle.
type ReconcileReport struct {
	CycleID      string        `json:"cycle_id"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Channels     int           `json:"channels"`
	Scanned      int           `json:"scanned"`
	Confirmed    int           `json:"confirmed"`
	NotConfirmed int           `json:"not_confirmed"`
	Errors       int           `json:"errors"`
	Skipped      int           `json:"skipped"`
}

// Fields flattens the report for structured logging.
func (r *ReconcileReport) Fields() map[string]interface{} {
	return map[string]interface{}{
		"cycle_id":      r.CycleID,
		"channels":      r.Channels,
		"scanned":       r.Scanned,
		"confirmed":     r.Confirmed,
		"not_confirmed": r.NotConfirmed,
		"errors":        r.Errors,
		"skipped":       r.Skipped,
		"duration_ms":   r.Duration.Milliseconds(),
	}
}

// =====================================================
// HOST ORDER
// =====================================================

// Order is the slice of a host order row this gateway reads and writes.
type Order struct {
	TradeNo    string     `json:"trade_no" db:"trade_no"`
	PaymentID  int64      `json:"payment_id" db:"payment_id"`
	Status     int        `json:"status" db:"status"`
	CallbackNo string     `json:"callback_no,omitempty" db:"callback_no"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty" db:"paid_at"`
}

func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// Candidate converts a pending order into a reconciliation candidate.
func (o *Order) Candidate() ReconciliationCandidate {
	return ReconciliationCandidate{
		MerchantOrderID:  o.TradeNo,
		CreatedAt:        o.CreatedAt,
		PaymentChannelID: o.PaymentID,
	}
}
