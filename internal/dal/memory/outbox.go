package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
)

// OutboxRepository is the in-memory outbox.
type OutboxRepository struct {
	acc access
	now func() time.Time
}

// NewOutboxRepository creates an outbox repository that commits each call.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{acc: direct{store: store}, now: time.Now}
}

func findMessage(d *dataset, id int64) (int, error) {
	for i := range d.Outbox {
		if d.Outbox[i].ID == id {
			return i, nil
		}
	}

	return -1, fmt.Errorf("outbox message %d not found", id)
}

// Insert adds a new message to the outbox.
func (r *OutboxRepository) Insert(_ context.Context, msg outbox.OutboxMessage) error {
	return r.acc.write(func(d *dataset) error {
		msg.ID = d.NextOutboxID
		d.NextOutboxID++
		d.Outbox = append(d.Outbox, msg)

		return nil
	})
}

// GetPendingMessages retrieves messages that are ready for retry.
func (r *OutboxRepository) GetPendingMessages(_ context.Context, limit int) ([]outbox.OutboxMessage, error) {
	now := r.now()

	var result []outbox.OutboxMessage
	err := r.acc.read(func(d *dataset) error {
		for _, msg := range d.Outbox {
			if msg.Ready(now) {
				result = append(result, msg)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(result, func(a, b outbox.OutboxMessage) int {
		return a.NextRetryAt.Compare(b.NextRetryAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Delete removes a message from the outbox after successful delivery.
func (r *OutboxRepository) Delete(_ context.Context, id int64) error {
	return r.acc.write(func(d *dataset) error {
		i, err := findMessage(d, id)
		if err != nil {
			return err
		}
		d.Outbox = slices.Delete(d.Outbox, i, i+1)

		return nil
	})
}

// UpdateRetry updates retry count and error information.
func (r *OutboxRepository) UpdateRetry(
	_ context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	return r.acc.write(func(d *dataset) error {
		i, err := findMessage(d, id)
		if err != nil {
			return err
		}

		msg := &d.Outbox[i]
		msg.RetryCount = retryCount
		msg.LastError = lastError
		msg.NextRetryAt = nextRetryAt
		msg.UpdatedAt = r.now()

		return nil
	})
}
