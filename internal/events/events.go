package events

import (
	"context"
	"time"

	"PixRelay/internal/models"

	"github.com/google/uuid"
)

// Notifier is told about every ledger status change.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, orderID string, status models.OrderStatus)
}

type StatusEvent struct {
	EventID    string    `json:"event_id"`
	OrderID    string    `json:"order_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewStatusEvent(orderID string, status models.OrderStatus) StatusEvent {
	return StatusEvent{
		EventID:    uuid.NewString(),
		OrderID:    orderID,
		Status:     string(status),
		OccurredAt: time.Now().UTC(),
	}
}

// Multi fans a change out to every notifier in order.
type Multi []Notifier

func (m Multi) OrderStatusChanged(ctx context.Context, orderID string, status models.OrderStatus) {
	for _, n := range m {
		if n != nil {
			n.OrderStatusChanged(ctx, orderID, status)
		}
	}
}

type Nop struct{}

func (Nop) OrderStatusChanged(context.Context, string, models.OrderStatus) {}
