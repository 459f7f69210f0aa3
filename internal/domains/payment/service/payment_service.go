package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"epay-gateway/internal/domains/payment/gateway"
	"epay-gateway/internal/domains/payment/gateway/epay"
	"epay-gateway/internal/domains/payment/model"
	"epay-gateway/internal/domains/payment/repository"
	"epay-gateway/pkg/logger"
)

type paymentService struct {
	store    repository.OrderStore
	gateway  gateway.EpayGateway
	provider epay.ConfigProvider
	tasks    TaskEnqueuer
}

func NewPaymentService(
	store repository.OrderStore,
	gw gateway.EpayGateway,
	provider epay.ConfigProvider,
	tasks TaskEnqueuer,
) PaymentService {
	return &paymentService{
		store:    store,
		gateway:  gw,
		provider: provider,
		tasks:    tasks,
	}
}

// =====================================================
// CHECKOUT
// =====================================================

func (s *paymentService) Method(ctx context.Context) (*model.PaymentMethodResponse, error) {
	cfg, err := epay.LoadConfig(ctx, s.provider)
	if err != nil {
		return nil, err
	}

	return &model.PaymentMethodResponse{
		Code:    model.GatewayCode,
		Name:    cfg.DisplayName,
		Icon:    cfg.Icon,
		Enabled: cfg.Enabled,
	}, nil
}

func (s *paymentService) Pay(ctx context.Context, req model.PayRequest) (*model.PayResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewInvalidPayRequestError(err)
	}

	// Settings are read per request
	cfg, err := epay.LoadConfig(ctx, s.provider)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, model.NewPaymentError(model.ErrCodeGatewayDisabled, "Payment method is disabled", model.ErrGatewayDisabled)
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("building redirect with incomplete gateway settings", map[string]interface{}{
			"trade_no": req.TradeNo,
			"error":    err.Error(),
		})
	}

	redirect := s.gateway.BuildPaymentRedirect(cfg, epay.PaymentRequest{
		AmountMinorUnits: req.TotalAmount,
		MerchantOrderID:  req.TradeNo,
		NotifyURL:        req.NotifyURL,
		ReturnURL:        req.ReturnURL,
	})

	logger.Info("payment redirect built", map[string]interface{}{
		"trade_no":     req.TradeNo,
		"total_amount": req.TotalAmount,
	})

	return &model.PayResponse{Type: 1, Data: redirect}, nil
}

// =====================================================
// CALLBACK
// =====================================================

func (s *paymentService) HandleCallback(ctx context.Context, params *epay.Params) (*epay.CallbackResult, error) {
	cfg, err := epay.LoadConfig(ctx, s.provider)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.VerifyCallback(params, cfg.SharedSecret)
	if err != nil {
		logger.Warn("epay callback rejected", map[string]interface{}{
			"out_trade_no": params.Value("out_trade_no"),
			"error":        err.Error(),
		})
		return nil, err
	}

	// The callback only nudges an active query; a failed enqueue is picked
	// up by the next periodic cycle.
	if err := s.tasks.EnqueueCheckOrder(ctx, model.CheckOrderPayload{
		TradeNo: result.HostOrderID,
		Source:  "callback",
	}); err != nil {
		logger.ErrorWithFields("failed to enqueue order check", err, map[string]interface{}{
			"trade_no": result.HostOrderID,
		})
	}

	logger.Info("epay callback verified", map[string]interface{}{
		"trade_no":    result.HostOrderID,
		"callback_no": result.GatewayOrderID,
	})

	return result, nil
}

// =====================================================
// RECONCILIATION
// =====================================================

func (s *paymentService) CheckOrder(ctx context.Context, tradeNo string) (*model.OrderStatusResponse, error) {
	order, err := s.store.FindOrder(ctx, tradeNo)
	if err != nil {
		return nil, err
	}

	channelIDs, err := s.store.EnabledChannelIDs(ctx, model.GatewayCode)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	if !slices.Contains(channelIDs, order.PaymentID) {
		return nil, model.NewPaymentError(
			model.ErrCodeForeignOrder,
			fmt.Sprintf("Order %s is not paid through %s", tradeNo, model.GatewayCode),
			model.ErrForeignOrder,
		)
	}

	cfg, err := epay.LoadConfig(ctx, s.provider)
	if err != nil {
		return nil, err
	}

	res := s.gateway.QueryStatus(ctx, cfg, tradeNo)
	resp := &model.OrderStatusResponse{
		TradeNo:    tradeNo,
		Status:     res.Status,
		CallbackNo: res.GatewayOrderID,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}

	if !res.Confirmed() || !order.IsPending() {
		return resp, nil
	}

	if err := s.store.MarkPaid(ctx, order.Candidate(), res.GatewayOrderID); err != nil {
		if errors.Is(err, model.ErrOrderNotPending) {
			return resp, nil
		}
		return nil, model.NewReconcileOrderError(tradeNo, err)
	}

	resp.MarkedPaid = true
	logger.Info("order marked paid via single check", map[string]interface{}{
		"trade_no":    tradeNo,
		"callback_no": res.GatewayOrderID,
	})

	return resp, nil
}

func (s *paymentService) TriggerReconcile(ctx context.Context, requestedBy string) (*model.ReconcileTriggerResponse, error) {
	taskID, err := s.tasks.EnqueueReconcile(ctx, model.ReconcilePendingPayload{RequestedBy: requestedBy})
	if err != nil {
		return nil, fmt.Errorf("enqueue reconcile: %w", err)
	}

	logger.Info("reconcile cycle queued", map[string]interface{}{
		"task_id":      taskID,
		"requested_by": requestedBy,
	})

	return &model.ReconcileTriggerResponse{TaskID: taskID}, nil
}

// =====================================================
// SETTINGS
// =====================================================

func (s *paymentService) RefreshConfig(ctx context.Context, requestedBy string) (*model.PaymentMethodResponse, error) {
	if inv, ok := s.provider.(epay.ConfigInvalidator); ok {
		if err := inv.Invalidate(ctx); err != nil {
			return nil, fmt.Errorf("invalidate gateway settings: %w", err)
		}
	}

	resp, err := s.Method(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("gateway settings refreshed", map[string]interface{}{
		"requested_by": requestedBy,
		"enabled":      resp.Enabled,
	})

	return resp, nil
}
