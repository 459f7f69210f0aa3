package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"epay-gateway/internal/domains/payment/model"
	"epay-gateway/internal/domains/payment/service"
	"epay-gateway/internal/shared"
	"epay-gateway/internal/shared/utils"
	"epay-gateway/pkg/logger"
)

const (
	// checkOrderUniqueTTL collapses repeated callbacks for the same order.
	checkOrderUniqueTTL = 30 * time.Second
	checkOrderDelay     = 2 * time.Second
	reconcileTimeout    = 5 * time.Minute
)

var _ service.TaskEnqueuer = (*TaskClient)(nil)

// TaskClient enqueues payment tasks for the worker.
type TaskClient struct {
	client *asynq.Client
}

func NewTaskClient(client *asynq.Client) *TaskClient {
	return &TaskClient{client: client}
}

func (c *TaskClient) EnqueueCheckOrder(ctx context.Context, payload model.CheckOrderPayload) error {
	task, opts, err := newCheckOrderTask(payload)
	if err != nil {
		return err
	}

	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Debug("check order already queued for " + payload.TradeNo)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", shared.TypePaymentCheckOrder, err)
	}

	logger.Info("Enqueued check order task", map[string]interface{}{
		"task_id":  info.ID,
		"trade_no": payload.TradeNo,
		"source":   payload.Source,
	})
	return nil
}

func (c *TaskClient) EnqueueReconcile(ctx context.Context, payload model.ReconcilePendingPayload) (string, error) {
	task, opts, err := newReconcileTask(payload)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", shared.TypePaymentReconcilePending, err)
	}
	return info.ID, nil
}

func (c *TaskClient) Close() error {
	return c.client.Close()
}

func newCheckOrderTask(payload model.CheckOrderPayload) (*asynq.Task, []asynq.Option, error) {
	task, err := utils.NewTask(shared.TypePaymentCheckOrder, payload)
	if err != nil {
		return nil, nil, err
	}
	return task, []asynq.Option{
		asynq.Queue(shared.QueueCritical),
		asynq.MaxRetry(5),
		asynq.ProcessIn(checkOrderDelay),
		asynq.Timeout(model.QueryTimeout + 5*time.Second),
		asynq.Unique(checkOrderUniqueTTL),
	}, nil
}

func newReconcileTask(payload model.ReconcilePendingPayload) (*asynq.Task, []asynq.Option, error) {
	task, err := utils.NewTask(shared.TypePaymentReconcilePending, payload)
	if err != nil {
		return nil, nil, err
	}
	return task, []asynq.Option{
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(1),
		asynq.Timeout(reconcileTimeout),
	}, nil
}
