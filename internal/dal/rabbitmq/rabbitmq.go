package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/streadway/amqp"
)

// Client represents a RabbitMQ client.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel

	// publishMu serializes frames written to the shared channel.
	publishMu sync.Mutex
}

// Channel returns the underlying AMQP channel.
func (r *Client) Channel() *amqp.Channel {
	return r.channel
}

// Close closes the channel and connection for graceful shutdown.
func (r *Client) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return err
		}
	}
	if r.conn != nil {
		return r.conn.Close()
	}

	return nil
}

// MustNewClient creates a new RabbitMQ client. Credentials come from
// RABBITMQ_DEFAULT_USER and RABBITMQ_DEFAULT_PASS.
func MustNewClient() *Client {
	host := viper.GetString("rabbitmq.host")
	port := viper.GetInt("rabbitmq.port")

	connStr := fmt.Sprintf(
		"amqp://%s:%s@%s:%d/",
		os.Getenv("RABBITMQ_DEFAULT_USER"),
		os.Getenv("RABBITMQ_DEFAULT_PASS"),
		host,
		port,
	)

	conn, err := amqp.Dial(connStr)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to RabbitMQ: %v", err))
	}

	channel, err := conn.Channel()
	if err != nil {
		err := conn.Close()
		if err != nil {
			panic(fmt.Sprintf("Failed to close a connection: %v", err))
		}
		panic(fmt.Sprintf("Failed to open a channel: %v", err))
	}

	slog.Info("RabbitMQ connected", "host", host, "port", port)

	return &Client{
		conn:    conn,
		channel: channel,
	}
}

type DeclareExchangeConfig struct {
	Name       string
	Kind       string
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Args       amqp.Table
}

// DeclareExchange declares an exchange with the given configuration.
func (r *Client) DeclareExchange(cfg DeclareExchangeConfig) error {
	kind := cfg.Kind
	if kind == "" {
		kind = amqp.ExchangeTopic
	}

	return r.channel.ExchangeDeclare(
		cfg.Name,
		kind,
		cfg.Durable,
		cfg.AutoDelete,
		cfg.Internal,
		cfg.NoWait,
		cfg.Args,
	)
}

// Message is a persistent message to publish.
type Message struct {
	Exchange    string
	RoutingKey  string
	MessageID   string
	ContentType string
	Body        []byte
	Timestamp   time.Time
}

// Publish sends a persistent message. ctx is checked before sending; the
// AMQP call itself is not cancellable.
func (r *Client) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	return r.channel.Publish(
		msg.Exchange,
		msg.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.MessageID,
			Timestamp:    msg.Timestamp,
			Body:         msg.Body,
		},
	)
}
