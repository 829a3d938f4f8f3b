// Package telemetry wraps OpenTelemetry tracing and Prometheus metrics
// for the boundary resolution pipeline: span-per-attempt tracing and
// fragment lifecycle counters/histograms.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// defaultTracerName is the span namespace for boundary resolution.
const defaultTracerName = "hydra"

// TracerConfig configures the resolved tracer.
type TracerConfig struct {
	// TracerName is the name passed to otel.Tracer (default: "hydra").
	TracerName string
}

// TracerOption configures a Tracer.
type TracerOption func(*TracerConfig)

// WithTracerName overrides the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) { c.TracerName = name }
}

// Tracer traces boundary attempts and hole resolutions. It uses the
// global OpenTelemetry tracer provider; configure that in main() before
// serving traffic.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer resolves a Tracer from the global tracer provider.
func NewTracer(opts ...TracerOption) *Tracer {
	cfg := TracerConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Tracer{tracer: otel.Tracer(cfg.TracerName)}
}

// StartAttempt opens a span covering one boundary resolution attempt
// (a single runInitially/re-render pass). The caller must call End on
// the returned span, recording an error via RecordError/SetStatus first
// if the attempt failed.
func (t *Tracer) StartAttempt(ctx context.Context, boundaryID string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "boundary.attempt",
		trace.WithAttributes(
			attribute.String("boundary.id", boundaryID),
			attribute.Int("boundary.attempt", attempt),
		),
	)
}

// StartHoleResolution opens a span covering waiting on one round of
// pending promises before a hole re-resolution pass.
func (t *Tracer) StartHoleResolution(ctx context.Context, boundaryID string, pendingCount int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "boundary.hole_resolution",
		trace.WithAttributes(
			attribute.String("boundary.id", boundaryID),
			attribute.Int("boundary.pending_count", pendingCount),
		),
	)
}

// EndWithError records err on span (if non-nil) and ends it, matching
// the record-error-then-set-status-then-end sequence used throughout
// OpenTelemetry instrumentation.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
