package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"epay-gateway/internal/domains/payment/model"
	"epay-gateway/pkg/logger"
)

// CycleRunner runs one reconciliation cycle.
type CycleRunner interface {
	Run(ctx context.Context) (*model.ReconcileReport, error)
}

// ReconcilePendingHandler runs a reconciliation cycle from the queue, either
// from the periodic scheduler or an admin trigger.
type ReconcilePendingHandler struct {
	runner CycleRunner
}

func NewReconcilePendingHandler(runner CycleRunner) *ReconcilePendingHandler {
	return &ReconcilePendingHandler{runner: runner}
}

func (h *ReconcilePendingHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	// Periodic tasks carry no payload.
	var payload model.ReconcilePendingPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w: %v", asynq.SkipRetry, err)
		}
	}

	report, err := h.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, model.ErrCycleInProgress) {
			logger.Warn("Reconcile task skipped: cycle already running", map[string]interface{}{
				"requested_by": payload.RequestedBy,
			})
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return fmt.Errorf("reconcile cycle: %w", err)
	}

	fields := report.Fields()
	fields["requested_by"] = payload.RequestedBy
	logger.Info("Reconcile task finished", fields)

	return nil
}
