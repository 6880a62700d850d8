package outbox

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// Publisher sends a message to the broker.
type Publisher interface {
	Publish(ctx context.Context, msg rabbitmq.Message) error
}

// Worker relays messages from the outbox to the broker.
type Worker struct {
	outboxRepo   ioutboxrepo.IOutboxRepository
	publisher    Publisher
	pollInterval time.Duration
	batchSize    int
	concurrency  int
	backoffBase  time.Duration
	now          func() time.Time
	stopCh       chan struct{}
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	publisher Publisher,
) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	concurrency := viper.GetInt("rabbitmq.outbox.publish_concurrency")
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Worker{
		outboxRepo:   outboxRepo,
		publisher:    publisher,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:    batchSize,
		concurrency:  concurrency,
		backoffBase:  30 * time.Second,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// Start begins processing messages from the outbox. It returns when ctx is
// done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"concurrency", w.concurrency,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// backoff returns the delay before the given retry: 60s, 120s, 240s and so on
// for the default 30s base.
func (w *Worker) backoff(retryCount int) time.Duration {
	return time.Duration(math.Pow(2, float64(retryCount))) * w.backoffBase
}

// processMessages publishes one batch of pending messages.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from outbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Processing outbox messages", "count", len(messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, msg := range messages {
		g.Go(func() error {
			w.relay(gctx, msg)

			return nil
		})
	}
	_ = g.Wait()
}

func (w *Worker) relay(ctx context.Context, msg outbox.OutboxMessage) {
	err := w.publisher.Publish(ctx, rabbitmq.Message{
		Exchange:    msg.ExchangeName,
		RoutingKey:  msg.RoutingKey,
		MessageID:   msg.MessageID,
		ContentType: msg.ContentType,
		Body:        msg.Payload,
		Timestamp:   msg.CreatedAt,
	})
	if err != nil {
		newRetryCount := msg.RetryCount + 1
		nextRetryAt := w.now().Add(w.backoff(newRetryCount))

		slog.Warn("Failed to publish message from outbox, will retry",
			"outbox_id", msg.ID,
			"routing_key", msg.RoutingKey,
			"retry_count", newRetryCount,
			"next_retry", nextRetryAt,
			"error", err,
		)

		if err := w.outboxRepo.UpdateRetry(ctx, msg.ID, newRetryCount, err.Error(), nextRetryAt); err != nil {
			slog.Error("Failed to update retry information", "outbox_id", msg.ID, "error", err)

			return
		}

		msg.RetryCount = newRetryCount
		if msg.Exhausted() {
			slog.Error("Outbox message ran out of retries and will not be published",
				"outbox_id", msg.ID,
				"message_id", msg.MessageID,
				"routing_key", msg.RoutingKey,
			)
		}

		return
	}

	if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
		slog.Error("Failed to delete message from outbox after successful publish",
			"outbox_id", msg.ID,
			"error", err,
		)

		return
	}

	slog.Debug("Message published and removed from outbox",
		"outbox_id", msg.ID,
		"routing_key", msg.RoutingKey,
	)
}
