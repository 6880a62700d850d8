package postgres

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/viper"
)

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx.
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Client represents a Postgres client.
type Client struct {
	pool *pgxpool.Pool
}

// Pool returns the underlying connection pool.
func (p *Client) Pool() *pgxpool.Pool {
	return p.pool
}

// Close closes the database connection for graceful shutdown.
func (p *Client) Close() {
	p.pool.Close()
}

// MustNewClient creates a new Postgres client from config and applies pending
// migrations.
func MustNewClient() *Client {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		viper.GetString("postgres.host"),
		viper.GetInt("postgres.port"),
		os.Getenv("FOOD_PG_USER"),
		os.Getenv("FOOD_PG_PASSWORD"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.sslmode"),
	)

	client, err := NewClient(
		context.Background(),
		connStr,
		viper.GetInt32("postgres.max_conns"),
		viper.GetString("postgres.migrations_path"),
	)
	if err != nil {
		panic(err)
	}

	return client
}

// NewClient connects to connStr and applies the migrations found in
// migrationsPath. A maxConns of zero keeps the pgxpool default.
func NewClient(ctx context.Context, connStr string, maxConns int32, migrationsPath string) (*Client, error) {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := migrate(pool, migrationsPath); err != nil {
		pool.Close()

		return nil, err
	}

	return &Client{
		pool: pool,
	}, nil
}

// migrate runs goose through the stdlib adapter.
func migrate(pool *pgxpool.Pool, migrationsPath string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.Up(db, migrationsPath); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
