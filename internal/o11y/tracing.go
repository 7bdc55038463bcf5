// Package o11y configures OpenTelemetry tracing for checker hosts.
package o11y

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// EndpointEnv enables trace export when set.
const EndpointEnv = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"

// SetupTracing configures the global TracerProvider to export spans via
// OTLP/HTTP when EndpointEnv is set. The returned func flushes and stops the
// provider; it is a no-op when tracing is disabled.
func SetupTracing(ctx context.Context, service string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if os.Getenv(EndpointEnv) == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(semconv.ServiceName(service)),
	)
	if err != nil {
		return noop, err
	}

	// Lambda freezes the process between invocations, so spans are exported
	// synchronously.
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
