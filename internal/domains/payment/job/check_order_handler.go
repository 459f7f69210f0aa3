package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"epay-gateway/internal/domains/payment/model"
	"epay-gateway/internal/domains/payment/service"
	"epay-gateway/internal/shared/utils"
	"epay-gateway/pkg/logger"
)

// CheckOrderHandler actively queries one order after a verified callback.
type CheckOrderHandler struct {
	paymentService service.PaymentService
}

func NewCheckOrderHandler(paymentService service.PaymentService) *CheckOrderHandler {
	return &CheckOrderHandler{
		paymentService: paymentService,
	}
}

func (h *CheckOrderHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.CheckOrderPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %v", asynq.SkipRetry, err)
	}
	if payload.TradeNo == "" {
		return fmt.Errorf("empty trade_no: %w", asynq.SkipRetry)
	}

	logger.Info("Processing check order task", map[string]interface{}{
		"trade_no": payload.TradeNo,
		"source":   payload.Source,
	})

	resp, err := h.paymentService.CheckOrder(ctx, payload.TradeNo)
	if err != nil {
		if isPermanent(err) {
			logger.Warn("Check order dropped", map[string]interface{}{
				"trade_no": payload.TradeNo,
				"error":    err.Error(),
			})
			return fmt.Errorf("check order %s: %w: %v", payload.TradeNo, asynq.SkipRetry, err)
		}
		return fmt.Errorf("check order %s: %w", payload.TradeNo, err)
	}

	// Gateway unreachable or malformed answer: let asynq retry with backoff.
	if resp.Status == model.QueryError {
		return fmt.Errorf("check order %s: %w: %s", payload.TradeNo, model.ErrGatewayQuery, resp.Error)
	}

	logger.Info("Check order finished", map[string]interface{}{
		"trade_no":    payload.TradeNo,
		"status":      resp.Status,
		"marked_paid": resp.MarkedPaid,
	})

	return nil
}

func isPermanent(err error) bool {
	return errors.Is(err, model.ErrOrderNotFound) ||
		errors.Is(err, model.ErrForeignOrder) ||
		errors.Is(err, model.ErrOrderNotPending) ||
		errors.Is(err, model.ErrConfiguration)
}
