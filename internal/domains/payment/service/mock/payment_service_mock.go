package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"epay-gateway/internal/domains/payment/gateway/epay"
	"epay-gateway/internal/domains/payment/model"
	"epay-gateway/internal/domains/payment/service"
)

var _ service.PaymentService = (*MockPaymentService)(nil)

// MockPaymentService is a testify mock of service.PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func NewMockPaymentService() *MockPaymentService {
	return &MockPaymentService{}
}

func (m *MockPaymentService) Method(ctx context.Context) (*model.PaymentMethodResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*model.PaymentMethodResponse)
	return resp, args.Error(1)
}

func (m *MockPaymentService) Pay(ctx context.Context, req model.PayRequest) (*model.PayResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*model.PayResponse)
	return resp, args.Error(1)
}

func (m *MockPaymentService) HandleCallback(ctx context.Context, params *epay.Params) (*epay.CallbackResult, error) {
	args := m.Called(ctx, params)
	res, _ := args.Get(0).(*epay.CallbackResult)
	return res, args.Error(1)
}

func (m *MockPaymentService) CheckOrder(ctx context.Context, tradeNo string) (*model.OrderStatusResponse, error) {
	args := m.Called(ctx, tradeNo)
	resp, _ := args.Get(0).(*model.OrderStatusResponse)
	return resp, args.Error(1)
}

func (m *MockPaymentService) TriggerReconcile(ctx context.Context, requestedBy string) (*model.ReconcileTriggerResponse, error) {
	args := m.Called(ctx, requestedBy)
	resp, _ := args.Get(0).(*model.ReconcileTriggerResponse)
	return resp, args.Error(1)
}

func (m *MockPaymentService) RefreshConfig(ctx context.Context, requestedBy string) (*model.PaymentMethodResponse, error) {
	args := m.Called(ctx, requestedBy)
	resp, _ := args.Get(0).(*model.PaymentMethodResponse)
	return resp, args.Error(1)
}
