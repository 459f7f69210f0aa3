package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"epay-gateway/internal/domains/payment/gateway/epay"
	"epay-gateway/internal/domains/payment/model"
)

// =====================================================
// ORDER STORE
// =====================================================

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) EnabledChannelIDs(ctx context.Context, gatewayCode string) ([]int64, error) {
	args := m.Called(ctx, gatewayCode)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *MockOrderStore) PendingOrders(ctx context.Context, channelIDs []int64, since time.Time) ([]model.ReconciliationCandidate, error) {
	args := m.Called(ctx, channelIDs, since)
	candidates, _ := args.Get(0).([]model.ReconciliationCandidate)
	return candidates, args.Error(1)
}

func (m *MockOrderStore) MarkPaid(ctx context.Context, candidate model.ReconciliationCandidate, gatewayOrderID string) error {
	args := m.Called(ctx, candidate, gatewayOrderID)
	return args.Error(0)
}

func (m *MockOrderStore) FindOrder(ctx context.Context, tradeNo string) (*model.Order, error) {
	args := m.Called(ctx, tradeNo)
	order, _ := args.Get(0).(*model.Order)
	return order, args.Error(1)
}

// =====================================================
// TASK ENQUEUER
// =====================================================

type MockTaskEnqueuer struct {
	mock.Mock
}

func (m *MockTaskEnqueuer) EnqueueCheckOrder(ctx context.Context, payload model.CheckOrderPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockTaskEnqueuer) EnqueueReconcile(ctx context.Context, payload model.ReconcilePendingPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

// =====================================================
// LOCKER
// =====================================================

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	args := m.Called(ctx, key, ttl)
	unlock, _ := args.Get(0).(func(context.Context) error)
	return unlock, args.Bool(1), args.Error(2)
}

// =====================================================
// STUBS
// =====================================================

// stubProvider serves fixed gateway settings.
type stubProvider struct {
	settings map[string]string
	err      error
}

func (p stubProvider) Settings(ctx context.Context) (map[string]string, error) {
	return p.settings, p.err
}

func enabledProvider() stubProvider {
	return stubProvider{settings: map[string]string{
		epay.SettingURL: "https://credit.example/epay",
		epay.SettingPID: "1000",
		epay.SettingKey: "secret",
	}}
}

// stubGateway lets tests script QueryStatus per order, including panics and
// blocking.
type stubGateway struct {
	query func(ctx context.Context, tradeNo string) epay.QueryResult
}

func (g *stubGateway) BuildPaymentRedirect(cfg epay.GatewayConfig, req epay.PaymentRequest) string {
	return cfg.SubmitURL() + "?out_trade_no=" + req.MerchantOrderID
}

func (g *stubGateway) VerifyCallback(params *epay.Params, secret string) (*epay.CallbackResult, error) {
	return nil, model.ErrSignatureMismatch
}

func (g *stubGateway) QueryStatus(ctx context.Context, cfg epay.GatewayConfig, merchantOrderID string) epay.QueryResult {
	return g.query(ctx, merchantOrderID)
}

func confirmed(tradeNo string) epay.QueryResult {
	return epay.QueryResult{Status: model.QueryConfirmed, MerchantOrderID: tradeNo, GatewayOrderID: "GW-" + tradeNo}
}

func notConfirmed(tradeNo string) epay.QueryResult {
	return epay.QueryResult{Status: model.QueryNotConfirmed, MerchantOrderID: tradeNo}
}
