package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the body of an order lifecycle message.
type OrderEvent struct {
	EventID    string      `json:"event_id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Order      order.Order `json:"order"`
}

// NewOrderMessage builds an outbox message carrying an OrderEvent. The event
// type doubles as the routing key.
func NewOrderMessage(
	exchange string,
	eventType string,
	o order.Order,
	now time.Time,
	maxRetries int,
) (OutboxMessage, error) {
	event := OrderEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: now,
		Order:      o,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	return OutboxMessage{
		MessageID:    event.EventID,
		ExchangeName: exchange,
		RoutingKey:   eventType,
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}, nil
}
