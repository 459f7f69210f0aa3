package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"epay-gateway/internal/domains/payment/model"
	"epay-gateway/pkg/database"
)

// =====================================================
// ORDER STORE IMPLEMENTATION
// =====================================================

// orderStore reads the host tables:
//
//	v2_payment(id, payment, enable)
//	v2_order(trade_no, payment_id, status, callback_no, paid_at, created_at, updated_at)
//
// Timestamps are unix seconds.
type orderStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewOrderStore(db *sql.DB) OrderStore {
	return &orderStore{db: db, now: time.Now}
}

// EnabledChannelIDs returns ids of enabled channels using gatewayCode
func (r *orderStore) EnabledChannelIDs(ctx context.Context, gatewayCode string) ([]int64, error) {
	query := `
		SELECT id
		FROM v2_payment
		WHERE payment = $1 AND enable = TRUE
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, gatewayCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment channels: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan payment channel: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment channels: %w", err)
	}

	return ids, nil
}

// PendingOrders returns pending orders on channelIDs created at or after since
func (r *orderStore) PendingOrders(ctx context.Context, channelIDs []int64, since time.Time) ([]model.ReconciliationCandidate, error) {
	if len(channelIDs) == 0 {
		return []model.ReconciliationCandidate{}, nil
	}

	query := `
		SELECT trade_no, payment_id, created_at
		FROM v2_order
		WHERE status = $1
		  AND payment_id = ANY($2)
		  AND created_at >= $3
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, model.OrderStatusPending, pq.Array(channelIDs), since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}
	defer rows.Close()

	candidates := make([]model.ReconciliationCandidate, 0)
	for rows.Next() {
		var (
			c         model.ReconciliationCandidate
			createdAt int64
		)
		if err := rows.Scan(&c.MerchantOrderID, &c.PaymentChannelID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending order: %w", err)
		}
		c.CreatedAt = time.Unix(createdAt, 0)
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending orders: %w", err)
	}

	return candidates, nil
}

// MarkPaid locks the order row and flips it from pending to processing.
// An order that is no longer pending returns ErrOrderNotPending.
func (r *orderStore) MarkPaid(ctx context.Context, candidate model.ReconciliationCandidate, gatewayOrderID string) error {
	return database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		var status int
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM v2_order WHERE trade_no = $1 FOR UPDATE`,
			candidate.MerchantOrderID,
		).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if status != model.OrderStatusPending {
			return model.NewOrderNotPendingError(candidate.MerchantOrderID)
		}

		now := r.now().Unix()
		result, err := tx.ExecContext(ctx, `
			UPDATE v2_order
			SET status = $1, callback_no = $2, paid_at = $3, updated_at = $3
			WHERE trade_no = $4 AND status = $5
		`, model.OrderStatusProcessing, gatewayOrderID, now, candidate.MerchantOrderID, model.OrderStatusPending)
		if err != nil {
			return fmt.Errorf("failed to mark order paid: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return model.NewOrderNotPendingError(candidate.MerchantOrderID)
		}

		return nil
	})
}

// FindOrder loads one order by trade number
func (r *orderStore) FindOrder(ctx context.Context, tradeNo string) (*model.Order, error) {
	query := `
		SELECT trade_no, payment_id, status, COALESCE(callback_no, ''), paid_at, created_at
		FROM v2_order
		WHERE trade_no = $1
	`

	var (
		o         model.Order
		paidAt    sql.NullInt64
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, query, tradeNo).Scan(
		&o.TradeNo,
		&o.PaymentID,
		&o.Status,
		&o.CallbackNo,
		&paidAt,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	o.CreatedAt = time.Unix(createdAt, 0)
	if paidAt.Valid {
		t := time.Unix(paidAt.Int64, 0)
		o.PaidAt = &t
	}

	return &o, nil
}
