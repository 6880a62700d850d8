package grpctransport

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// GRPCTransport represents the gRPC transport layer.
type GRPCTransport struct {
	server      *grpc.Server
	health      *health.Server
	orderServer *OrderServer
}

// NewGRPCTransport creates a new GRPCTransport.
func NewGRPCTransport(service service) *GRPCTransport {
	return &GRPCTransport{
		server:      newGRPCServer(),
		health:      health.NewServer(),
		orderServer: NewOrderServer(service),
	}
}

// Run listens on the configured port and serves until Shutdown.
func (g *GRPCTransport) Run() error {
	listener, err := net.Listen("tcp", ":"+viper.GetString("server.grpc.port"))
	if err != nil {
		return err
	}

	return g.Serve(listener)
}

// Serve serves on an existing listener.
func (g *GRPCTransport) Serve(listener net.Listener) error {
	slog.Info("Starting gRPC server", "address", listener.Addr().String())

	return g.server.Serve(listener)
}

// Shutdown gracefully shuts down the gRPC server.
func (g *GRPCTransport) Shutdown(ctx context.Context) error {
	g.health.Shutdown()

	done := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		g.server.Stop()

		return ctx.Err()
	}
}

// RegisterServices registers the gRPC services.
func (g *GRPCTransport) RegisterServices() {
	RegisterOrderServiceServer(g.server, g.orderServer)
	healthpb.RegisterHealthServer(g.server, g.health)

	g.health.SetServingStatus(OrderServiceName, healthpb.HealthCheckResponse_SERVING)
	g.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}

// newGRPCServer creates a new gRPC server with default settings.
func newGRPCServer() *grpc.Server {
	keepaliveParams := keepalive.ServerParameters{
		MaxConnectionIdle: time.Duration(
			viper.GetInt("server.grpc.keepalive.max_connection_idle"),
		) * time.Minute,
		MaxConnectionAge: time.Duration(
			viper.GetInt("server.grpc.keepalive.max_connection_age"),
		) * time.Minute,
		MaxConnectionAgeGrace: time.Duration(
			viper.GetInt("server.grpc.keepalive.max_connection_age_grace"),
		) * time.Second,
		Time: time.Duration(
			viper.GetInt("server.grpc.keepalive.time"),
		) * time.Second,
		Timeout: time.Duration(
			viper.GetInt("server.grpc.keepalive.timeout"),
		) * time.Second,
	}

	keepalivePolicy := keepalive.EnforcementPolicy{
		MinTime: time.Duration(
			viper.GetInt("server.grpc.keepalive.min_time"),
		) * time.Second,
		PermitWithoutStream: viper.GetBool("server.grpc.keepalive.permit_without_stream"),
	}

	opts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepaliveParams),
		grpc.KeepaliveEnforcementPolicy(keepalivePolicy),
		grpc.ChainUnaryInterceptor(loggingInterceptor),
	}

	return grpc.NewServer(opts...)
}

func loggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	if err != nil {
		slog.WarnContext(ctx, "gRPC call failed",
			"method", info.FullMethod,
			"duration", time.Since(start),
			"error", err,
		)
	} else {
		slog.InfoContext(ctx, "gRPC call served",
			"method", info.FullMethod,
			"duration", time.Since(start),
		)
	}

	return resp, err
}
