package ioutboxrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
)

// IOutboxRepository stores order events until they are published.
type IOutboxRepository interface {
	Insert(ctx context.Context, msg outbox.OutboxMessage) error

	// GetPendingMessages returns due messages with retries left.
	GetPendingMessages(ctx context.Context, limit int) ([]outbox.OutboxMessage, error)

	Delete(ctx context.Context, id int64) error

	// UpdateRetry records a failed publish and schedules the next attempt.
	UpdateRetry(
		ctx context.Context,
		id int64,
		retryCount int,
		lastError string,
		nextRetryAt time.Time,
	) error
}
