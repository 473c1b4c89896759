// Package toolkit implements explicit, non-reflective tool registration and
// validated, cancellable, streaming invocation. Registration is exclusive
// (guarded by a mutex); lookup is lock-free, served from an atomically
// swapped snapshot map so concurrent reasoning steps never block on a
// registration in flight.
package toolkit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/agentscope-go/reactcore/reacterr"
	"github.com/agentscope-go/reactcore/telemetry"
)

// Invoker runs a registered tool's body, emitting zero or more output
// chunks on the returned channel and exactly one terminal chunk before
// closing it. Implementations MUST observe ctx cancellation.
type Invoker func(ctx context.Context, callID string, arguments []byte) <-chan ToolChunk

// Registration describes a tool at registration time. Name, Description,
// and Parameters are always explicit. Invoker is nil for schema-only tools.
type Registration struct {
	Name        string
	Description string
	Parameters  []Param
	Strict      bool
	Invoker     Invoker
	// Idempotent marks a tool whose repeated invocation with identical
	// arguments is safe to replay; advisory metadata for callers that
	// dedupe retried calls, not enforced by the toolkit itself.
	Idempotent bool
}

type entry struct {
	desc    Descriptor
	invoker Invoker
	schema  *jsonschema.Schema
}

// Toolkit is the registry of tools available to one or more agent calls.
// The zero value is not usable; construct with New.
type Toolkit struct {
	mu      sync.Mutex // guards registration mutations only
	entries atomic.Pointer[map[string]*entry]

	logger telemetry.Logger

	// ExecutionTimeout, when non-zero, bounds every invocation; exceeding
	// it yields a terminal chunk with ErrorTimeout.
	ExecutionTimeout time.Duration
}

// New constructs an empty Toolkit. logger may be nil, defaulting to a
// no-op logger.
func New(logger telemetry.Logger) *Toolkit {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	tk := &Toolkit{logger: logger}
	empty := map[string]*entry{}
	tk.entries.Store(&empty)
	return tk
}

// Register adds or replaces a tool by logical name. Duplicate registration
// replaces the prior entry and logs a warning, matching the descriptor
// derivation contract. The parameter schema is compiled once here so
// Invoke never pays validation-setup cost.
func (tk *Toolkit) Register(ctx context.Context, reg Registration) error {
	if reg.Name == "" {
		return reacterr.ErrBadInput
	}
	desc, err := newDescriptor(reg.Name, reg.Description, reg.Parameters, reg.Strict, reg.Invoker == nil)
	if err != nil {
		return err
	}
	compiled, err := compileSchema(reg.Name, desc.Schema)
	if err != nil {
		return err
	}

	tk.mu.Lock()
	defer tk.mu.Unlock()

	current := *tk.entries.Load()
	next := make(map[string]*entry, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	if _, exists := next[reg.Name]; exists {
		tk.logger.Warn(ctx, "replacing tool registration", "tool", reg.Name)
	}
	next[reg.Name] = &entry{desc: desc, invoker: reg.Invoker, schema: compiled}
	tk.entries.Store(&next)
	return nil
}

// Remove deletes a tool by name. Removing an unknown name is a no-op.
func (tk *Toolkit) Remove(name string) {
	tk.mu.Lock()
	defer tk.mu.Unlock()

	current := *tk.entries.Load()
	if _, ok := current[name]; !ok {
		return
	}
	next := make(map[string]*entry, len(current)-1)
	for k, v := range current {
		if k != name {
			next[k] = v
		}
	}
	tk.entries.Store(&next)
}

// Descriptors returns a lock-free snapshot of every registered tool's
// Descriptor, in no particular order.
func (tk *Toolkit) Descriptors() []Descriptor {
	current := *tk.entries.Load()
	out := make([]Descriptor, 0, len(current))
	for _, e := range current {
		out = append(out, e.desc)
	}
	return out
}

// Descriptor returns the named tool's Descriptor, if registered.
func (tk *Toolkit) Descriptor(name string) (Descriptor, bool) {
	current := *tk.entries.Load()
	e, ok := current[name]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

func (tk *Toolkit) lookup(name string) (*entry, bool) {
	current := *tk.entries.Load()
	e, ok := current[name]
	return e, ok
}
