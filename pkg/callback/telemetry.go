package callback

import (
	"context"
	"net/http"
	"time"

	"callback/pkg/metrics"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// outcome classifies how a request ended.
type outcome string

const (
	outcomeSuccess       outcome = "success"
	outcomeBusinessError outcome = "business_error"
	outcomeException     outcome = "exception"
	outcomeMalformed     outcome = "malformed"
	outcomeRejected      outcome = "rejected"
)

type telemetry struct {
	tracer      trace.Tracer
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
}

func newTelemetry(mp metric.MeterProvider, tp trace.TracerProvider) (*telemetry, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	m := mp.Meter(metrics.InstrumentationName)

	invocations, err := m.Int64Counter("callback.invocations",
		metric.WithDescription("Controller invocations by outcome"))
	if err != nil {
		return nil, errors.Wrap(err, "create invocations counter")
	}
	duration, err := m.Float64Histogram("callback.duration",
		metric.WithDescription("Controller execution time"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.DefaultBuckets...))
	if err != nil {
		return nil, errors.Wrap(err, "create duration histogram")
	}

	return &telemetry{
		tracer:      tp.Tracer(metrics.InstrumentationName),
		invocations: invocations,
		duration:    duration,
	}, nil
}

func route(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}

	return r.Pattern
}

func (t *telemetry) start(ctx context.Context, r *http.Request) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "callback.invoke",
		trace.WithAttributes(attribute.String("http.route", route(r))))
}

// record ends the invocation: it counts the outcome, observes took when
// non-zero and annotates span with the reported code.
func (t *telemetry) record(ctx context.Context, r *http.Request, span trace.Span,
	o outcome, code int, took time.Duration, cause error) {
	attrs := metric.WithAttributes(
		attribute.String("route", route(r)),
		attribute.String("outcome", string(o)),
	)
	t.invocations.Add(ctx, 1, attrs)
	if took > 0 {
		t.duration.Record(ctx, took.Seconds(), attrs)
	}

	span.SetAttributes(
		attribute.String("callback.outcome", string(o)),
		attribute.Int("callback.code", code),
	)
	if cause != nil {
		span.RecordError(cause)
		span.SetStatus(codes.Error, string(o))
	}
}
