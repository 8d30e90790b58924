package observability

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// TracingOptions selects the OTLP endpoint and sampling behavior.
type TracingOptions struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
	ServiceName string
	Version     string
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error
)

// InitTracing sets the global tracer provider. The returned shutdown func is
// nil when tracing is disabled.
func InitTracing(ctx context.Context, opts TracingOptions) func(context.Context) error {
	otelOnce.Do(func() {
		if !opts.Enabled {
			return
		}
		serviceName := opts.ServiceName
		if serviceName == "" {
			serviceName = "aquasense"
		}
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceNameKey.String(serviceName),
				semconv.ServiceVersionKey.String(opts.Version),
				attribute.String("service.component", serviceName),
			),
		)
		if err != nil {
			log.Printf("otel_resource_init_failed err=%v", err)
		}

		exporterOpts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if opts.Endpoint != "" {
			exporterOpts = append(exporterOpts, otlptracehttp.WithEndpoint(opts.Endpoint))
		}
		exporter, err := otlptracehttp.New(ctx, exporterOpts...)
		if err != nil {
			log.Printf("otel_exporter_init_failed err=%v", err)
			return
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(opts.SampleRatio)))),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		log.Printf("otel_tracing_initialized service=%s endpoint=%s", serviceName, opts.Endpoint)
	})
	return otelShutdown
}

func clampRatio(ratio float64) float64 {
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}
