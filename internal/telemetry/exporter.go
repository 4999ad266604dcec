// Package telemetry exports per-session analysis metrics to an OTEL
// Collector.
package telemetry

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

	"github.com/andresmejia3/posture/internal/analysis"
	"github.com/andresmejia3/posture/internal/config"
)

const serviceName = "posture"

// Recorder is an analysis.Metrics that can be flushed on shutdown.
type Recorder interface {
	analysis.Metrics
	Close(ctx context.Context) error
}

// Exporter records session metrics through an OTLP meter provider.
type Exporter struct {
	provider      *sdkmetric.MeterProvider
	sessionsTotal metric.Int64Counter
	framesTotal   metric.Int64Counter
	gesturesTotal metric.Int64Counter
	qualityTotal  metric.Int64Counter
	durationHist  metric.Float64Histogram
}

// New returns an OTLP exporter when telemetry is enabled and a no-op
// recorder otherwise.
func New(ctx context.Context, cfg config.Telemetry, version string) (Recorder, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return NoOp{}, nil
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

	e, err := newExporter(ctx, sdkmetric.NewPeriodicReader(exp), version)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(e.provider)
	return e, nil
}

func newExporter(ctx context.Context, reader sdkmetric.Reader, version string) (*Exporter, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
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

	e := &Exporter{provider: provider}

	if e.sessionsTotal, err = meter.Int64Counter(
		"posture_sessions_total",
		metric.WithDescription("Analyzed sessions by abort flag"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("creating sessions counter: %w", err)
	}

	if e.framesTotal, err = meter.Int64Counter(
		"posture_frames_total",
		metric.WithDescription("Decoded frames"),
		metric.WithUnit("{frame}"),
	); err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	if e.gesturesTotal, err = meter.Int64Counter(
		"posture_gestures_total",
		metric.WithDescription("Frames with a detected hand gesture"),
		metric.WithUnit("{frame}"),
	); err != nil {
		return nil, fmt.Errorf("creating gestures counter: %w", err)
	}

	if e.qualityTotal, err = meter.Int64Counter(
		"posture_quality_frames_total",
		metric.WithDescription("Frames carrying a data-quality flag"),
		metric.WithUnit("{frame}"),
	); err != nil {
		return nil, fmt.Errorf("creating quality counter: %w", err)
	}

	if e.durationHist, err = meter.Float64Histogram(
		"posture_session_duration_seconds",
		metric.WithDescription("Wall time spent analyzing a session"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return e, nil
}

// RecordSession implements analysis.Metrics.
func (e *Exporter) RecordSession(ctx context.Context, s analysis.SessionStats) {
	opt := metric.WithAttributes(attribute.String("flag", s.Flag.String()))

	e.sessionsTotal.Add(ctx, 1, opt)
	e.framesTotal.Add(ctx, int64(s.FramesDecoded), opt)
	e.gesturesTotal.Add(ctx, int64(s.Gestures), opt)
	e.durationHist.Record(ctx, s.Duration.Seconds(), opt)

	for quality, n := range map[string]int{
		"low_light": s.LowLight,
		"too_far":   s.TooFar,
		"no_face":   s.NoFace,
	} {
		if n > 0 {
			e.qualityTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("quality", quality)))
		}
	}
}

// Close shuts down the provider and flushes pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
