package model

import (
	"errors"
	"fmt"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrConfiguration     = errors.New("gateway configuration incomplete")
	ErrMissingSignature  = errors.New("callback has no sign parameter")
	ErrSignatureMismatch = errors.New("callback signature mismatch")
	ErrGatewayQuery      = errors.New("gateway status query failed")
	ErrReconcileOrder    = errors.New("reconcile order failed")
	ErrCycleInProgress   = errors.New("reconciliation cycle already running")
	ErrOrderNotPending   = errors.New("order is not in pending status")
	ErrMissingTradeNo    = errors.New("callback has no out_trade_no")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidPayRequest = errors.New("invalid pay request")
	ErrGatewayDisabled   = errors.New("gateway is disabled")
	ErrForeignOrder      = errors.New("order does not use this gateway")
)

// =====================================================
// CUSTOM PAYMENT ERROR
// =====================================================

type PaymentError struct {
	Code    string
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =====================================================
// ERROR CONSTRUCTORS
// =====================================================

func NewConfigurationError(field string) *PaymentError {
	return NewPaymentError(
		ErrCodeConfiguration,
		fmt.Sprintf("gateway setting %q is empty", field),
		ErrConfiguration,
	)
}

func NewInvalidSignatureError() *PaymentError {
	return NewPaymentError(
		ErrCodeInvalidSignature,
		"Invalid callback signature - possible fraud attempt",
		ErrSignatureMismatch,
	)
}

func NewMissingSignatureError() *PaymentError {
	return NewPaymentError(
		ErrCodeMissingSignature,
		"Callback rejected: sign parameter missing",
		ErrMissingSignature,
	)
}

func NewGatewayQueryError(tradeNo string, err error) *PaymentError {
	return NewPaymentError(
		ErrCodeGatewayQuery,
		fmt.Sprintf("status query for %s failed: %v", tradeNo, err),
		ErrGatewayQuery,
	)
}

func NewReconcileOrderError(tradeNo string, err error) *PaymentError {
	return NewPaymentError(
		ErrCodeReconcileOrder,
		fmt.Sprintf("order %s: %v", tradeNo, err),
		ErrReconcileOrder,
	)
}

func NewOrderNotPendingError(tradeNo string) *PaymentError {
	return NewPaymentError(
		ErrCodeOrderNotPending,
		fmt.Sprintf("Order %s is no longer pending", tradeNo),
		ErrOrderNotPending,
	)
}

func NewInvalidPayRequestError(err error) *PaymentError {
	return NewPaymentError(
		ErrCodeInvalidPayRequest,
		fmt.Sprintf("Invalid pay request: %v", err),
		ErrInvalidPayRequest,
	)
}

// ErrorCode returns the internal code carried by err, or the generic
// internal error code.
func ErrorCode(err error) string {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	switch {
	case errors.Is(err, ErrConfiguration):
		return ErrCodeConfiguration
	case errors.Is(err, ErrMissingSignature):
		return ErrCodeMissingSignature
	case errors.Is(err, ErrSignatureMismatch):
		return ErrCodeInvalidSignature
	case errors.Is(err, ErrCycleInProgress):
		return ErrCodeCycleInProgress
	case errors.Is(err, ErrOrderNotPending):
		return ErrCodeOrderNotPending
	case errors.Is(err, ErrMissingTradeNo):
		return ErrCodeMissingTradeNo
	case errors.Is(err, ErrInvalidPayRequest):
		return ErrCodeInvalidPayRequest
	case errors.Is(err, ErrGatewayDisabled):
		return ErrCodeGatewayDisabled
	case errors.Is(err, ErrForeignOrder):
		return ErrCodeForeignOrder
	case errors.Is(err, ErrOrderNotFound):
		return ErrCodeOrderNotFound
	}
	return ErrCodeInternalError
}
