package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/corray333/backend-labs/foodorder/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MustInit loads .env and config.yaml into viper and installs the default logger.
func MustInit() {
	if err := godotenv.Load("./.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("error while loading .env file: " + err.Error())
	}

	SetDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/food-order-svc")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic("error while reading config file: " + err.Error())
		}
	}

	viper.SetEnvKeyReplacer(envReplacer())
	viper.AutomaticEnv()

	SetupLogger()
}

// envReplacer maps storage.driver to STORAGE_DRIVER.
func envReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// SetDefaults registers the values used when neither the config file nor the
// environment sets a key.
func SetDefaults() {
	viper.SetDefault("log.level", "info")

	viper.SetDefault("storage.driver", "memory")
	viper.SetDefault("storage.memory.snapshot_path", "")
	viper.SetDefault("storage.seed_path", "")

	viper.SetDefault("orders.delivery_eta_minutes", 35)

	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("server.http.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.http.cors.allowed_methods", []string{"GET", "POST", "PUT", "OPTIONS"})
	viper.SetDefault("server.http.cors.allowed_headers", []string{"Accept", "Content-Type", "X-Request-Id"})
	viper.SetDefault("server.http.cors.exposed_headers", []string{"X-Request-Id"})
	viper.SetDefault("server.http.cors.allow_credentials", false)
	viper.SetDefault("server.http.cors.max_age", 300)

	viper.SetDefault("server.grpc.enabled", true)
	viper.SetDefault("server.grpc.port", "9090")
	viper.SetDefault("server.grpc.keepalive.max_connection_idle", 15)
	viper.SetDefault("server.grpc.keepalive.max_connection_age", 30)
	viper.SetDefault("server.grpc.keepalive.max_connection_age_grace", 5)
	viper.SetDefault("server.grpc.keepalive.time", 5)
	viper.SetDefault("server.grpc.keepalive.timeout", 1)
	viper.SetDefault("server.grpc.keepalive.min_time", 5)
	viper.SetDefault("server.grpc.keepalive.permit_without_stream", true)

	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", 5432)
	viper.SetDefault("postgres.db", "foodorder")
	viper.SetDefault("postgres.sslmode", "disable")
	viper.SetDefault("postgres.max_conns", 10)
	viper.SetDefault("postgres.migrations_path", "./migrations")

	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "rabbitmq")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.exchange", "food-orders")
	viper.SetDefault("rabbitmq.outbox.poll_interval_seconds", 10)
	viper.SetDefault("rabbitmq.outbox.batch_size", 100)
	viper.SetDefault("rabbitmq.outbox.max_retries", 5)
	viper.SetDefault("rabbitmq.outbox.publish_concurrency", 4)

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.service_name", "food-order-svc")
	viper.SetDefault("tracing.jaeger_endpoint", "http://jaeger:14268/api/traces")
}

// SetupLogger installs the JSON request-aware handler as the default logger.
func SetupLogger() {
	handler := logger.NewHandler(&slog.HandlerOptions{
		Level: logger.ParseLevel(viper.GetString("log.level")),
	})
	log := slog.New(handler)
	slog.SetDefault(log)
}
