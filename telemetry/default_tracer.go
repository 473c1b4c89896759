package telemetry

import "sync/atomic"

// Per design note §9: the source toggled a process-wide mutable tracer via a
// static initializer; this module never does that implicitly. defaultTracer
// exists purely as an opt-in convenience for processes that don't want to
// thread a Tracer through every call site by hand — core engine logic never
// reads it on its own; callers must explicitly pass telemetry.DefaultTracer()
// to engine.WithTracer if they want that behavior.
var defaultTracer atomic.Pointer[Tracer]

func init() {
	var t Tracer = NoopTracer{}
	defaultTracer.Store(&t)
}

// SetDefaultTracer atomically replaces the process-wide convenience tracer.
// Safe to call concurrently with DefaultTracer.
func SetDefaultTracer(t Tracer) {
	if t == nil {
		t = NoopTracer{}
	}
	defaultTracer.Store(&t)
}

// DefaultTracer returns the current process-wide convenience tracer. It
// starts out as a no-op tracer until SetDefaultTracer is called.
func DefaultTracer() Tracer {
	return *defaultTracer.Load()
}
