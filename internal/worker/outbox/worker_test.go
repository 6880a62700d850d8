package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
)

type fakeRepo struct {
	mu       sync.Mutex
	messages map[int64]outbox.OutboxMessage
	deleted  []int64
}

func newFakeRepo(msgs ...outbox.OutboxMessage) *fakeRepo {
	r := &fakeRepo{messages: make(map[int64]outbox.OutboxMessage)}
	for _, m := range msgs {
		r.messages[m.ID] = m
	}

	return r
}

func (r *fakeRepo) Insert(_ context.Context, msg outbox.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.ID] = msg

	return nil
}

func (r *fakeRepo) GetPendingMessages(_ context.Context, limit int) ([]outbox.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []outbox.OutboxMessage
	for _, m := range r.messages {
		if len(out) == limit {
			break
		}
		if m.RetryCount < m.MaxRetries {
			out = append(out, m)
		}
	}

	return out, nil
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, id)
	r.deleted = append(r.deleted, id)

	return nil
}

func (r *fakeRepo) UpdateRetry(_ context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.messages[id]
	if !ok {
		return errors.New("not found")
	}
	m.RetryCount = retryCount
	m.LastError = lastError
	m.NextRetryAt = nextRetryAt
	r.messages[id] = m

	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []rabbitmq.Message
	failKey   string
}

func (p *fakePublisher) Publish(_ context.Context, msg rabbitmq.Message) error {
	if msg.RoutingKey == p.failKey {
		return errors.New("broker unavailable")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, msg)

	return nil
}

func TestProcessMessages(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	repo := newFakeRepo(
		outbox.OutboxMessage{ID: 1, MessageID: "a", ExchangeName: "food-orders", RoutingKey: outbox.EventOrderCreated, Payload: []byte(`{}`), MaxRetries: 5},
		outbox.OutboxMessage{ID: 2, MessageID: "b", ExchangeName: "food-orders", RoutingKey: outbox.EventOrderStatusChanged, Payload: []byte(`{}`), MaxRetries: 5},
		outbox.OutboxMessage{ID: 3, MessageID: "c", ExchangeName: "food-orders", RoutingKey: "fail", Payload: []byte(`{}`), RetryCount: 1, MaxRetries: 5},
	)
	pub := &fakePublisher{failKey: "fail"}

	w := NewWorker(repo, pub)
	w.now = func() time.Time { return now }

	w.processMessages(context.Background())

	if len(pub.published) != 2 {
		t.Fatalf("want 2 published, got %d", len(pub.published))
	}
	if len(repo.deleted) != 2 {
		t.Fatalf("want 2 deleted, got %v", repo.deleted)
	}

	failed, ok := repo.messages[3]
	if !ok {
		t.Fatal("failed message must stay in the outbox")
	}
	if failed.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", failed.RetryCount)
	}
	if failed.LastError != "broker unavailable" {
		t.Errorf("last error = %q", failed.LastError)
	}
	if want := now.Add(120 * time.Second); !failed.NextRetryAt.Equal(want) {
		t.Errorf("next retry = %v, want %v", failed.NextRetryAt, want)
	}
}

func TestBackoff(t *testing.T) {
	w := &Worker{backoffBase: 30 * time.Second}

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
	}

	for _, tt := range tests {
		if got := w.backoff(tt.retry); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestStartStops(t *testing.T) {
	w := NewWorker(newFakeRepo(), &fakePublisher{})

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
