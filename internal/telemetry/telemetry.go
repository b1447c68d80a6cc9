package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const metricExportInterval = 10 * time.Second

type (
	Meter = metric.Meter

	Counter   = metric.Int64Counter
	Histogram = metric.Int64Histogram
	Gauge     = metric.Int64Gauge
)

// Init installs the global meter provider. Without a config, or with
// export disabled, meters stay no-op.
func Init(ctx context.Context, config *Config) error {
	if config == nil || !config.ExportMetrics {
		return nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
	if config.GrpcEndpoint != "" {
		opts = append(opts, otlpmetricgrpc.WithEndpoint(config.GrpcEndpoint))
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName(config.ServiceName)),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize metric resource: %w", err)
	}

	otel.SetMeterProvider(sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(metricExportInterval))),
		sdkmetric.WithResource(res),
	))
	return nil
}

func Shutdown(ctx context.Context) {
	mp, ok := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	if !ok {
		return
	}
	// nothing to do with the error
	_ = mp.Shutdown(context.WithoutCancel(ctx))
}

func NewMeter(name string) Meter {
	return otel.Meter(name)
}
