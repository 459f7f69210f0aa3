package shared

// Asynq task types
const (
	TypePaymentCheckOrder       = "payment:check_order"
	TypePaymentReconcilePending = "payment:reconcile_pending"
)

// Asynq queues, highest weight first
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)
