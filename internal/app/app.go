package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/memory"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/dal/rabbitmq"
	outboxrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/outbox/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/dal/seed"
	"github.com/corray333/backend-labs/foodorder/internal/otel"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/catalogsvc"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/ordersvc"
	grpctransport "github.com/corray333/backend-labs/foodorder/internal/transport/grpc"
	httptransport "github.com/corray333/backend-labs/foodorder/internal/transport/http"
	outboxworker "github.com/corray333/backend-labs/foodorder/internal/worker/outbox"
	"github.com/spf13/viper"
)

const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	catalogSvc     *catalogsvc.CatalogService
	httpTransport  *httptransport.HTTPTransport
	grpcTransport  *grpctransport.GRPCTransport
	outboxWorker   *outboxworker.Worker
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	a := &App{
		otelController: otel.MustInitOtel(),
	}

	var (
		orderOpts   []ordersvc.Option
		catalogOpts []catalogsvc.Option
		outboxRepo  ioutboxrepo.IOutboxRepository
	)

	switch driver := viper.GetString("storage.driver"); driver {
	case driverMemory:
		store, err := memory.NewStore(viper.GetString("storage.memory.snapshot_path"))
		if err != nil {
			panic(err)
		}
		orderOpts = append(orderOpts, ordersvc.WithMemoryStore(store))
		catalogOpts = append(catalogOpts, catalogsvc.WithMemoryStore(store))
		outboxRepo = memory.NewOutboxRepository(store)
	case driverPostgres:
		a.postgresClient = postgres.MustNewClient()
		orderOpts = append(orderOpts, ordersvc.WithPostgresClient(a.postgresClient))
		catalogOpts = append(catalogOpts, catalogsvc.WithPostgresClient(a.postgresClient))
		outboxRepo = outboxrepo.NewPostgresOutboxRepository(a.postgresClient.Pool())
	default:
		panic(fmt.Sprintf("unknown storage driver %q", driver))
	}
	slog.Info("Storage initialized", "driver", viper.GetString("storage.driver"))

	orderOpts = append(orderOpts, ordersvc.WithDeliveryETA(
		time.Duration(viper.GetInt("orders.delivery_eta_minutes"))*time.Minute,
	))

	if viper.GetBool("rabbitmq.enabled") {
		a.rabbitMqClient = rabbitmq.MustNewClient()

		exchange := viper.GetString("rabbitmq.exchange")
		if err := a.rabbitMqClient.DeclareExchange(rabbitmq.DeclareExchangeConfig{
			Name:    exchange,
			Durable: true,
		}); err != nil {
			panic(fmt.Sprintf("Failed to declare exchange %s: %v", exchange, err))
		}

		orderOpts = append(orderOpts, ordersvc.WithEvents(exchange, viper.GetInt("rabbitmq.outbox.max_retries")))
		a.outboxWorker = outboxworker.NewWorker(outboxRepo, a.rabbitMqClient)
	}

	a.orderSvc = ordersvc.MustNewOrderService(orderOpts...)
	a.catalogSvc = catalogsvc.MustNewCatalogService(catalogOpts...)

	if path := viper.GetString("storage.seed_path"); path != "" {
		mustSeed(a.catalogSvc, path)
	}

	a.httpTransport = httptransport.NewHTTPTransport(a.orderSvc, a.catalogSvc)
	a.httpTransport.RegisterRoutes()

	if viper.GetBool("server.grpc.enabled") {
		a.grpcTransport = grpctransport.NewGRPCTransport(a.orderSvc)
		a.grpcTransport.RegisterServices()
	}

	return a
}

func mustSeed(catalogSvc *catalogsvc.CatalogService, path string) {
	restaurants, err := seed.LoadCatalog(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("Seed file not found, starting with the stored catalog", "path", path)

		return
	}
	if err != nil {
		panic(err)
	}

	imported, err := catalogSvc.Import(context.Background(), restaurants)
	if err != nil {
		panic(err)
	}

	slog.Info("Catalog seeded", "path", path, "imported", imported, "in_file", len(restaurants))
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := a.httpTransport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if a.grpcTransport != nil {
		go func() {
			if err := a.grpcTransport.Run(); err != nil {
				slog.Error("gRPC server error", "error", err)
			}
		}()
	}

	if a.outboxWorker != nil {
		go a.outboxWorker.Start(ctx)
	}

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops the worker, the transports and then closes the
// broker, database and tracing connections.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.outboxWorker != nil {
		a.outboxWorker.Stop()
	}

	if err := a.httpTransport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if a.grpcTransport != nil {
		if err := a.grpcTransport.Shutdown(ctx); err != nil {
			slog.Error("gRPC server shutdown error", "error", err)
		} else {
			slog.Info("gRPC server stopped gracefully")
		}
	}

	if a.rabbitMqClient != nil {
		if err := a.rabbitMqClient.Close(); err != nil {
			slog.Error("RabbitMQ connection close error", "error", err)
		} else {
			slog.Info("RabbitMQ connection closed gracefully")
		}
	}

	if a.postgresClient != nil {
		a.postgresClient.Close()
		slog.Info("Database connection closed gracefully")
	}

	if err := a.otelController.Shutdown(ctx); err != nil {
		slog.Error("Otel trace provider shutdown error", "error", err)
	}

	select {
	case <-ctx.Done():
		slog.Warn("Shutdown timeout exceeded")
	default:
		slog.Info("Application shutdown complete")
	}
}
