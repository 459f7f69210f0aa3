package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"epay-gateway/internal/domains/payment/gateway"
	"epay-gateway/internal/domains/payment/gateway/epay"
)

// =====================================================
// MOCK EPAY GATEWAY FOR TESTING
// =====================================================

type MockEpayGateway struct {
	mock.Mock
}

var _ gateway.EpayGateway = (*MockEpayGateway)(nil)

func NewMockEpayGateway() *MockEpayGateway {
	return &MockEpayGateway{}
}

func (m *MockEpayGateway) BuildPaymentRedirect(cfg epay.GatewayConfig, req epay.PaymentRequest) string {
	args := m.Called(cfg, req)
	return args.String(0)
}

func (m *MockEpayGateway) VerifyCallback(params *epay.Params, secret string) (*epay.CallbackResult, error) {
	args := m.Called(params, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*epay.CallbackResult), args.Error(1)
}

func (m *MockEpayGateway) QueryStatus(ctx context.Context, cfg epay.GatewayConfig, merchantOrderID string) epay.QueryResult {
	args := m.Called(ctx, cfg, merchantOrderID)
	return args.Get(0).(epay.QueryResult)
}
