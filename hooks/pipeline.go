package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentscope-go/reactcore/reacterr"
	"github.com/agentscope-go/reactcore/telemetry"
)

// Subscription represents an active hook registration. Close is idempotent
// and safe to call concurrently with Dispatch.
type Subscription interface {
	Close()
}

type registered struct {
	hook Hook
	id   uint64
}

type subscription struct {
	pipeline *Pipeline
	id       uint64
	once     sync.Once
}

func (s *subscription) Close() {
	s.once.Do(func() { s.pipeline.remove(s.id) })
}

// Pipeline dispatches HookEvents to registered Hooks in ascending priority
// order. Registration is exclusive; dispatch reads a lock-free snapshot so a
// hook running mid-call is never blocked by a concurrent Register/Close.
type Pipeline struct {
	mu      sync.Mutex // guards registration mutations only
	hooks   atomic.Pointer[[]registered]
	nextID  uint64
	budget  time.Duration
	logger  telemetry.Logger
	metrics telemetry.Metrics
}

// New constructs a Pipeline. budget bounds how long any single hook
// invocation may run before it is treated as having failed with a timeout;
// zero disables the budget. logger/metrics may be nil, defaulting to no-ops.
func New(budget time.Duration, logger telemetry.Logger, metrics telemetry.Metrics) *Pipeline {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	p := &Pipeline{budget: budget, logger: logger, metrics: metrics}
	empty := []registered{}
	p.hooks.Store(&empty)
	return p
}

// Register adds a hook to the pipeline, re-sorting by priority. Hooks with
// equal priority run in registration order (stable sort).
func (p *Pipeline) Register(h Hook) Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID
	current := *p.hooks.Load()
	next := make([]registered, len(current), len(current)+1)
	copy(next, current)
	next = append(next, registered{hook: h, id: id})
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].hook.Priority() < next[j].hook.Priority()
	})
	p.hooks.Store(&next)
	return &subscription{pipeline: p, id: id}
}

func (p *Pipeline) remove(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := *p.hooks.Load()
	next := make([]registered, 0, len(current))
	for _, r := range current {
		if r.id != id {
			next = append(next, r)
		}
	}
	p.hooks.Store(&next)
}

// Dispatch runs every registered hook, in priority order, against evt.
// Modifiable events carry each hook's replacement forward to the next hook;
// the final event returned is the output of the last hook to run (or evt
// itself if no hook replaced it). If a hook raises, Dispatch wraps the
// error with reacterr.ErrHook and stops running further hooks for this
// event; the engine decides whether that is fatal for the current phase.
func (p *Pipeline) Dispatch(ctx context.Context, evt Event) (Event, error) {
	hooksSnapshot := *p.hooks.Load()
	current := evt
	for _, r := range hooksSnapshot {
		out, err := p.runOne(ctx, r.hook, current)
		if err != nil {
			return current, fmt.Errorf("%w: %w", reacterr.ErrHook, err)
		}
		if Modifiable(evt.Kind()) && out != nil {
			current = out
		}
	}
	return current, nil
}

func (p *Pipeline) runOne(ctx context.Context, h Hook, evt Event) (Event, error) {
	if p.budget <= 0 {
		return h.HandleEvent(ctx, evt)
	}

	hookCtx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()

	type result struct {
		evt Event
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := h.HandleEvent(hookCtx, evt)
		done <- result{evt: out, err: err}
	}()

	select {
	case r := <-done:
		return r.evt, r.err
	case <-hookCtx.Done():
		p.metrics.IncCounter("hooks.budget_exceeded", 1)
		return nil, hookCtx.Err()
	}
}
