// Package observability instruments the sales workflows with OpenTelemetry spans and metrics.
package observability

import (
	"context"
	"time"

	"agrofunnel/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "agrofunnel"

// Tracker records one span, one outcome count and one duration sample per workflow run.
type Tracker struct {
	tracer   trace.Tracer
	outcomes metric.Int64Counter
	duration metric.Float64Histogram
}

// NewTracker uses the given providers, or the global ones when nil.
func NewTracker(tp trace.TracerProvider, mp metric.MeterProvider) *Tracker {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)
	t := &Tracker{tracer: tp.Tracer(instrumentationName)}
	// instrument creation only fails on invalid names; a nil instrument is skipped below
	t.outcomes, _ = meter.Int64Counter("agrofunnel.workflow.outcomes",
		metric.WithDescription("Workflow runs by operation and outcome"))
	t.duration, _ = meter.Float64Histogram("agrofunnel.workflow.duration",
		metric.WithDescription("Workflow duration"), metric.WithUnit("s"))
	return t
}

// Track starts a span for op. The returned func ends it and must be called exactly once.
func (t *Tracker) Track(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if t == nil {
		return ctx, func(error) {}
	}
	start := time.Now()
	ctx, span := t.tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	return ctx, func(err error) {
		outcome := "success"
		if err != nil {
			outcome = "error"
			kind := string(domain.KindOf(err))
			if kind == "" {
				kind = "internal"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, kind)
			span.SetAttributes(attribute.String("error.kind", kind))
		}
		span.End()

		labels := metric.WithAttributes(attribute.String("operation", op), attribute.String("outcome", outcome))
		if t.outcomes != nil {
			t.outcomes.Add(ctx, 1, labels)
		}
		if t.duration != nil {
			t.duration.Record(ctx, time.Since(start).Seconds(), labels)
		}
	}
}
