package otel

import (
	"context"
	"log/slog"

	"github.com/corray333/backend-labs/foodorder/internal/jaeger"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

type OtelController struct {
	traceProvider *sdktrace.TracerProvider
}

// MustInitOtel installs the global tracer provider and the W3C propagator.
// With tracing disabled spans are still created and sampled but never exported.
func MustInitOtel() *OtelController {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(viper.GetString("tracing.service_name")),
		)),
	}

	if viper.GetBool("tracing.enabled") {
		endpoint := viper.GetString("tracing.jaeger_endpoint")
		opts = append(opts, sdktrace.WithBatcher(jaeger.MustNewJaeger(endpoint)))
		slog.Info("Tracing enabled", "endpoint", endpoint)
	}

	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &OtelController{
		traceProvider: tp,
	}
}

func (o *OtelController) Shutdown(ctx context.Context) error {
	return o.traceProvider.Shutdown(ctx)
}
