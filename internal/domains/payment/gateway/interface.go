package gateway

import (
	"context"

	"epay-gateway/internal/domains/payment/gateway/epay"
)

// =====================================================
// GATEWAY INTERFACES
// =====================================================

// EpayGateway is the signed epay protocol as seen by the payment service and
// the reconciler.
type EpayGateway interface {
	// BuildPaymentRedirect returns the signed submit.php URL
	BuildPaymentRedirect(cfg epay.GatewayConfig, req epay.PaymentRequest) string

	// VerifyCallback checks the signature of an asynchronous notification
	VerifyCallback(params *epay.Params, secret string) (*epay.CallbackResult, error)

	// QueryStatus actively asks the gateway whether an order is paid
	QueryStatus(ctx context.Context, cfg epay.GatewayConfig, merchantOrderID string) epay.QueryResult
}

var _ EpayGateway = (*epay.Client)(nil)
