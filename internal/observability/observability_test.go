package observability

import (
	"context"
	"errors"
	"testing"

	"agrofunnel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracker() (*Tracker, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return NewTracker(tp, mp), recorder, reader
}

func TestTrackRecordsSpans(t *testing.T) {
	tracker, recorder, _ := newTestTracker()

	_, done := tracker.Track(context.Background(), "checkout", attribute.String("payment_method", "financing"))
	done(nil)
	_, done = tracker.Track(context.Background(), "checkout")
	done(domain.ErrEmptyCart)
	_, done = tracker.Track(context.Background(), "booking")
	done(errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "checkout", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "empty_cart", spans[1].Status().Description)
	assert.Equal(t, "internal", spans[2].Status().Description)
}

func TestTrackCountsOutcomes(t *testing.T) {
	tracker, _, reader := newTestTracker()
	for _, err := range []error{nil, nil, domain.ErrIneligible} {
		_, done := tracker.Track(context.Background(), "discount")
		done(err)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "agrofunnel.workflow.outcomes" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				counts[outcome.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"success": 2, "error": 1}, counts)
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tracker *Tracker
	ctx, done := tracker.Track(context.Background(), "noop")
	done(nil)
	assert.NotNil(t, ctx)
}

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	p, err := Setup(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, p.tracerProvider)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSamplerRates(t *testing.T) {
	assert.Contains(t, sampler(0).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}
