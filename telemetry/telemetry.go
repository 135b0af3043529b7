// Package telemetry abstracts structured logging, metrics and tracing for the
// router runtime. Implementations delegate to Clue and OpenTelemetry but the
// interfaces are intentionally small so tests can provide lightweight stubs.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging used throughout the runtime.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter and histogram helpers for runtime instrumentation.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so runtime code can remain agnostic of the
// underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span represents an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// Sink bundles the three observability interfaces consumed by the router and
// the connector runtime. The zero value is not usable; construct with Noop or
// Clue.
type Sink struct {
	Logger  Logger
	Metrics Metrics
	Tracer  Tracer
}

// Noop returns a Sink that discards everything. This is the default for
// sessions constructed without explicit telemetry.
func Noop() Sink {
	return Sink{
		Logger:  NewNoopLogger(),
		Metrics: NewNoopMetrics(),
		Tracer:  NewNoopTracer(),
	}
}

// Clue returns a Sink backed by clue/log and the global OTEL providers.
func Clue() Sink {
	return Sink{
		Logger:  NewClueLogger(),
		Metrics: NewClueMetrics(),
		Tracer:  NewClueTracer(),
	}
}
