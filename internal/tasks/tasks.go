package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeExpireOrder = "order:expire"
	TypePruneCarts  = "cart:prune"
)

// Queue names
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// ExpireOrderPayload identifies the order to expire
type ExpireOrderPayload struct {
	OrderID string `json:"order_id"`
}

// PruneCartsPayload carries the idle period after which carts are removed
type PruneCartsPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewExpireOrderTask creates a task that cancels an order left unpaid for delay
func NewExpireOrderTask(orderID string, delay time.Duration) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(ExpireOrderPayload{OrderID: orderID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	opts := []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.ProcessIn(delay),
		asynq.TaskID(TypeExpireOrder + ":" + orderID),
	}
	return asynq.NewTask(TypeExpireOrder, payload), opts, nil
}

// NewPruneCartsTask creates a task that deletes carts idle for olderThan
func NewPruneCartsTask(olderThan time.Duration) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(PruneCartsPayload{OlderThan: olderThan})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	opts := []asynq.Option{
		asynq.Queue(QueueLow),
		asynq.MaxRetry(3),
	}
	return asynq.NewTask(TypePruneCarts, payload), opts, nil
}

// ParseExpireOrderPayload parses an order:expire payload
func ParseExpireOrderPayload(task *asynq.Task) (ExpireOrderPayload, error) {
	var payload ExpireOrderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.OrderID == "" {
		return payload, fmt.Errorf("order_id is empty")
	}
	return payload, nil
}

// ParsePruneCartsPayload parses a cart:prune payload
func ParsePruneCartsPayload(task *asynq.Task) (PruneCartsPayload, error) {
	var payload PruneCartsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
