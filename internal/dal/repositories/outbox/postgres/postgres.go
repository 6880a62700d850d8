package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
	"github.com/jackc/pgx/v5"
)

const outboxTable = "outbox"

var outboxColumns = []string{
	"id",
	"message_id",
	"exchange_name",
	"routing_key",
	"payload",
	"content_type",
	"retry_count",
	"max_retries",
	"last_error",
	"created_at",
	"updated_at",
	"next_retry_at",
}

// OutboxDal represents the outbox table row.
type OutboxDal struct {
	Id           int64     `db:"id"`
	MessageId    string    `db:"message_id"`
	ExchangeName string    `db:"exchange_name"`
	RoutingKey   string    `db:"routing_key"`
	Payload      []byte    `db:"payload"`
	ContentType  string    `db:"content_type"`
	RetryCount   int       `db:"retry_count"`
	MaxRetries   int       `db:"max_retries"`
	LastError    string    `db:"last_error"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	NextRetryAt  time.Time `db:"next_retry_at"`
}

// ToModel converts OutboxDal to the service layer message.
func (o *OutboxDal) ToModel() outbox.OutboxMessage {
	return outbox.OutboxMessage{
		ID:           o.Id,
		MessageID:    o.MessageId,
		ExchangeName: o.ExchangeName,
		RoutingKey:   o.RoutingKey,
		Payload:      o.Payload,
		ContentType:  o.ContentType,
		RetryCount:   o.RetryCount,
		MaxRetries:   o.MaxRetries,
		LastError:    o.LastError,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		NextRetryAt:  o.NextRetryAt,
	}
}

// PostgresOutboxRepository keeps order events until the relay publishes them.
type PostgresOutboxRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
	now  func() time.Time
}

// NewPostgresOutboxRepository creates a new outbox repository.
func NewPostgresOutboxRepository(conn postgres.GenericConn) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now:  time.Now,
	}
}

// Insert writes an event. Re-inserting a message id is a no-op.
func (r *PostgresOutboxRepository) Insert(ctx context.Context, msg outbox.OutboxMessage) error {
	sql, args, err := r.sb.Insert(outboxTable).
		SetMap(map[string]any{
			"message_id":    msg.MessageID,
			"exchange_name": msg.ExchangeName,
			"routing_key":   msg.RoutingKey,
			"payload":       msg.Payload,
			"content_type":  msg.ContentType,
			"retry_count":   msg.RetryCount,
			"max_retries":   msg.MaxRetries,
			"last_error":    msg.LastError,
			"created_at":    msg.CreatedAt,
			"updated_at":    msg.UpdatedAt,
			"next_retry_at": msg.NextRetryAt,
		}).
		Suffix("ON CONFLICT (message_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to insert outbox message %s: %w", msg.MessageID, err)
	}

	return nil
}

// GetPendingMessages returns up to limit messages that are due and still have
// retries left, oldest schedule first.
func (r *PostgresOutboxRepository) GetPendingMessages(
	ctx context.Context,
	limit int,
) ([]outbox.OutboxMessage, error) {
	query := r.sb.Select(outboxColumns...).
		From(outboxTable).
		Where(sq.LtOrEq{"next_retry_at": r.now()}).
		Where(sq.Expr("retry_count < max_retries")).
		OrderBy("next_retry_at", "id")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}

	dals, err := pgx.CollectRows(rows, pgx.RowToStructByName[OutboxDal])
	if err != nil {
		return nil, fmt.Errorf("failed to scan outbox messages: %w", err)
	}

	messages := make([]outbox.OutboxMessage, 0, len(dals))
	for i := range dals {
		messages = append(messages, dals[i].ToModel())
	}

	return messages, nil
}

// Delete removes a published message.
func (r *PostgresOutboxRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete(outboxTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to delete outbox message %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outbox message %d not found", id)
	}

	return nil
}

// UpdateRetry records a failed publish and reschedules the message.
func (r *PostgresOutboxRepository) UpdateRetry(
	ctx context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	sql, args, err := r.sb.Update(outboxTable).
		SetMap(map[string]any{
			"retry_count":   retryCount,
			"last_error":    lastError,
			"next_retry_at": nextRetryAt,
			"updated_at":    r.now(),
		}).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to reschedule outbox message %d: %w", id, err)
	}

	return nil
}
