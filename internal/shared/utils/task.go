package utils

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// UnmarshalTask decodes an asynq task payload into dst.
func UnmarshalTask(t *asynq.Task, dst interface{}) error {
	if len(t.Payload()) == 0 {
		return fmt.Errorf("task %s has empty payload", t.Type())
	}
	if err := json.Unmarshal(t.Payload(), dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Type(), err)
	}
	return nil
}

// NewTask encodes payload as JSON and wraps it in an asynq task.
func NewTask(taskType string, payload interface{}, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	return asynq.NewTask(taskType, data, opts...), nil
}
