package model

import "time"

// =====================================================
// GATEWAY
// =====================================================
const (
	// GatewayCode is the value stored in v2_payment.payment for this gateway.
	GatewayCode = "EpayLDC"

	// PluginCode identifies the plugin row holding the gateway settings.
	PluginCode = "epay_ldc"
)

// =====================================================
// ORDER STATUS (host order table)
// =====================================================
const (
	OrderStatusPending    = 0
	OrderStatusProcessing = 1
	OrderStatusCancelled  = 2
	OrderStatusCompleted  = 3
)

// =====================================================
// QUERY STATUS
// =====================================================
type QueryStatus string

const (
	QueryConfirmed    QueryStatus = "confirmed"
	QueryNotConfirmed QueryStatus = "not_confirmed"
	QueryError        QueryStatus = "error"
)

// =====================================================
// INTERNAL ERROR CODES
// =====================================================
const (
	ErrCodeConfiguration     = "PAY001"
	ErrCodeMissingSignature  = "PAY002"
	ErrCodeInvalidSignature  = "PAY003"
	ErrCodeGatewayQuery      = "PAY004"
	ErrCodeReconcileOrder    = "PAY005"
	ErrCodeCycleInProgress   = "PAY006"
	ErrCodeOrderNotPending   = "PAY007"
	ErrCodeMissingTradeNo    = "PAY008"
	ErrCodeInvalidPayRequest = "PAY009"
	ErrCodeGatewayDisabled   = "PAY010"
	ErrCodeForeignOrder      = "PAY011"
	ErrCodeOrderNotFound     = "PAY012"
	ErrCodeInternalError     = "PAY024"
)

// =====================================================
// RECONCILIATION
// =====================================================
const (
	// ReconcileInterval is how often the scheduler fires a cycle.
	ReconcileInterval = time.Minute

	// ReconcileWindow bounds how old a pending order may be to still be polled.
	// Older orders are left to the host's own housekeeping.
	ReconcileWindow = 24 * time.Hour

	// QueryTimeout applies to every outbound status query.
	QueryTimeout = 10 * time.Second

	DefaultReconcileWorkers = 4
)
