// Package engine implements the ReAct reason/act loop: a single call
// walks Start → Reasoning → PostReason → (Acting)? → Finish, dispatching
// every lifecycle transition through a hook pipeline and exposing the same
// event sequence to external subscribers (§4.6).
package engine

import (
	"context"
	"sync"

	"github.com/agentscope-go/reactcore/hooks"
	"github.com/agentscope-go/reactcore/memory"
	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/modelport"
	"github.com/agentscope-go/reactcore/telemetry"
	"github.com/agentscope-go/reactcore/toolkit"
)

// CallResult is the outcome of one Run: the terminal assistant message and
// the reason the loop stopped.
type CallResult struct {
	Message      message.Message
	FinishReason FinishReason
}

// Engine runs the reason/act loop for one agent. Calls on a single Engine
// are serialized: a new call does not start until the previous one has
// emitted PostCall (§5).
type Engine struct {
	model    modelport.Port
	toolkit  *toolkit.Toolkit
	memory   *memory.Memory
	pipeline *hooks.Pipeline
	cfg      Config

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer

	session SessionBackend

	callMu sync.Mutex
}

// EngineOption customizes an Engine's observability and persistence
// collaborators at construction time.
type EngineOption func(*Engine)

func WithLogger(l telemetry.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(m telemetry.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func WithTracer(t telemetry.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

func WithSessionBackend(s SessionBackend) EngineOption {
	return func(e *Engine) { e.session = s }
}

// New constructs an Engine bound to the given model port, toolkit, memory,
// and hook pipeline. cfg is validated eagerly so a misconfigured engine
// fails at construction, not on the first call.
func New(model modelport.Port, tk *toolkit.Toolkit, mem *memory.Memory, pipeline *hooks.Pipeline, cfg Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ToolExecutionTimeout > 0 {
		tk.ExecutionTimeout = cfg.ToolExecutionTimeout
	}
	e := &Engine{
		model:    model,
		toolkit:  tk,
		memory:   mem,
		pipeline: pipeline,
		cfg:      cfg,
		logger:   telemetry.NewNoopLogger(),
		metrics:  telemetry.NewNoopMetrics(),
		tracer:   telemetry.NewNoopTracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Stream runs one call and returns its lifecycle event sequence. The
// channel is closed after the terminal PostCall event is sent. Sends never
// block: if the caller falls behind and the buffer fills, the call aborts
// with FinishError. Use Run for callers that only need the final result.
func (e *Engine) Stream(ctx context.Context, input []message.Message) <-chan hooks.Event {
	events, _ := e.start(ctx, input)
	return events
}

// Run executes one call to completion and returns its terminal message and
// finish reason, discarding the intermediate event stream.
func (e *Engine) Run(ctx context.Context, input []message.Message) CallResult {
	events, result := e.start(ctx, input)
	for range events {
	}
	return <-result
}

func (e *Engine) start(ctx context.Context, input []message.Message) (<-chan hooks.Event, <-chan CallResult) {
	events := make(chan hooks.Event, e.cfg.StreamBufferSize)
	result := make(chan CallResult, 1)

	go func() {
		e.callMu.Lock()
		defer e.callMu.Unlock()
		defer close(events)

		spanCtx, span := e.tracer.Start(ctx, "engine.call")
		defer span.End()

		result <- e.run(spanCtx, input, events)
	}()

	return events, result
}
