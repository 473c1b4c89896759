// Package telemetry defines the logging, metrics, and tracing interfaces
// used throughout the engine. Implementations are swappable: production
// wiring typically uses ClueLogger/OtelMetrics/OtelTracer, tests use the
// Noop variants. Per the design notes, there is no process-global tracer —
// a Tracer handle is passed to the engine with engine.WithTracer; see
// DefaultTracer for the opt-in, atomically-replaceable convenience wiring.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging. The interface is intentionally small
// so tests can provide lightweight stubs.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter, timer, and gauge helpers for engine
// instrumentation (reasoning step duration, tool invocation duration, hook
// budget overruns, stream overflow counts).
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so engine code stays agnostic of the
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

// ToolTelemetry captures observability metadata collected during a single
// tool invocation.
type ToolTelemetry struct {
	// DurationMs is the wall-clock execution time in milliseconds.
	DurationMs int64
	// TokensUsed tracks tokens consumed if the tool itself called a model.
	TokensUsed int
	// Model identifies the model used by the tool, when applicable.
	Model string
	// Extra holds tool-specific metadata not captured by the common fields.
	Extra map[string]any
}
