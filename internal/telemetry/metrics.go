package telemetry

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
)

// Metrics holds the counters/histograms the pipeline records at each stage.
type Metrics struct {
	TasksFetched    metric.Int64Counter
	ProofsComputed  metric.Int64Counter
	ProofsSubmitted metric.Int64Counter
	RetryAttempts   metric.Int64Counter
	WaitDuration    metric.Float64Histogram
}

// InitMeter sets up a global OTLP metrics exporter (push) and returns the
// shutdown function plus the resolved instrument set. On exporter failure
// it logs a warning and returns no-op instruments rather than blocking
// startup on a missing collector.
func InitMeter(ctx context.Context, service string) (func(context.Context) error, Metrics) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	ctxInit, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exp, err := otlpmetricgrpc.New(ctxInit,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithDialOption(grpc.WithInsecure()),
	)
	if err != nil {
		slog.Warn("metrics exporter init failed", "error", err)
		return func(context.Context) error { return nil }, newInstruments()
	}

	res, _ := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(service),
	))
	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(10*time.Second))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)
	slog.Info("metrics initialized", "endpoint", endpoint)
	return mp.Shutdown, newInstruments()
}

func newInstruments() Metrics {
	meter := otel.Meter(tracerName)
	fetched, _ := meter.Int64Counter("nexus_prover_tasks_fetched_total")
	proved, _ := meter.Int64Counter("nexus_prover_proofs_computed_total")
	submitted, _ := meter.Int64Counter("nexus_prover_proofs_submitted_total")
	retries, _ := meter.Int64Counter("nexus_prover_retry_attempts_total")
	waitSeconds, _ := meter.Float64Histogram("nexus_prover_request_wait_seconds")
	return Metrics{
		TasksFetched:    fetched,
		ProofsComputed:  proved,
		ProofsSubmitted: submitted,
		RetryAttempts:   retries,
		WaitDuration:    waitSeconds,
	}
}
