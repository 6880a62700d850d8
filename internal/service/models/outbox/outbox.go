package outbox

import (
	"time"
)

// OutboxMessage is an order event stored with the change that produced it and
// relayed to the broker afterwards.
type OutboxMessage struct {
	ID           int64
	MessageID    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

// Ready reports whether the relay should try the message at now.
func (m OutboxMessage) Ready(now time.Time) bool {
	return !m.NextRetryAt.After(now) && !m.Exhausted()
}

// Exhausted reports whether the message has used up its retries.
func (m OutboxMessage) Exhausted() bool {
	return m.RetryCount >= m.MaxRetries
}
