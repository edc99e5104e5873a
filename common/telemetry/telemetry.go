package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"class-service/common/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultEndpoint = "otel-collector.infra.svc.cluster.local:4317"

// Options describes where and how metrics are exported.
type Options struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Interval       time.Duration
}

func InitMeterProvider(ctx context.Context, opts Options, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	interval := opts.Interval
	if interval == 0 {
		interval = 10 * time.Second
	}

	logger.Info("initializing OTel metrics", "endpoint", endpoint)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)

	otel.SetMeterProvider(meterProvider)
	logger.Info("OTel metrics initialized successfully")

	return meterProvider, nil
}

type Telemetry struct {
	MeterProvider *sdkmetric.MeterProvider
	Metrics       *metrics.Metrics
}

// Init installs the OTLP meter provider globally and builds the shared
// infrastructure instruments on it.
func Init(ctx context.Context, opts Options, logger *slog.Logger) (*Telemetry, error) {
	meterProvider, err := InitMeterProvider(ctx, opts, logger)
	if err != nil {
		return nil, err
	}

	m, err := metrics.New(otel.Meter(opts.ServiceName), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return &Telemetry{
		MeterProvider: meterProvider,
		Metrics:       m,
	}, nil
}

func (t *Telemetry) Shutdown(ctx context.Context, logger *slog.Logger) error {
	if t == nil || t.MeterProvider == nil {
		return nil
	}
	logger.Info("shutting down OTel meter provider")
	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
