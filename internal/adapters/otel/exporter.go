package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/util"
)

const (
	serviceName    = "abcta"
	serviceVersion = "1.0.0"
)

// Exporter records experiment events as OTEL metrics.
type Exporter struct {
	provider     *sdkmetric.MeterProvider
	eventsTotal  metric.Int64Counter
	scrollHist   metric.Int64Histogram
	durationHist metric.Float64Histogram
}

// NewExporter creates an exporter that pushes to an OTEL Collector over gRPC.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	e, err := NewExporterWithReader(ctx, sdkmetric.NewPeriodicReader(exp))
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(e.provider)
	return e, nil
}

// NewExporterWithReader creates an exporter over an arbitrary metric reader.
func NewExporterWithReader(ctx context.Context, reader sdkmetric.Reader) (*Exporter, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter(serviceName)

	eventsTotal, err := meter.Int64Counter(
		"abcta_events_total",
		metric.WithDescription("Experiment events by name and variant"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}

	scrollHist, err := meter.Int64Histogram(
		"abcta_scroll_depth",
		metric.WithDescription("Scroll depth milestones reached"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scroll histogram: %w", err)
	}

	durationHist, err := meter.Float64Histogram(
		"abcta_time_on_page_seconds",
		metric.WithDescription("Time spent on page before unload"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating time on page histogram: %w", err)
	}

	return &Exporter{
		provider:     provider,
		eventsTotal:  eventsTotal,
		scrollHist:   scrollHist,
		durationHist: durationHist,
	}, nil
}

func (e *Exporter) Name() string { return "otel" }

// Track records one event.
func (e *Exporter) Track(ctx context.Context, ev domain.Event) error {
	variant, _ := ev.Properties[domain.KeyVariant].(string)
	opt := metric.WithAttributes(
		attribute.String("test_id", ev.TestID),
		attribute.String("test_name", ev.TestName),
		attribute.String("event", ev.Name),
		attribute.String("variant", variant),
	)

	e.eventsTotal.Add(ctx, 1, opt)

	switch ev.Name {
	case domain.EventScrollDepth:
		e.scrollHist.Record(ctx, util.ToInt64(ev.Properties["depth"]), opt)
	case domain.EventPageEngagement:
		e.durationHist.Record(ctx, util.ToFloat64(ev.Properties["time_on_page"]), opt)
	}
	return nil
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
