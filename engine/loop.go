package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/agentscope-go/reactcore/hooks"
	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/modelport"
	"github.com/agentscope-go/reactcore/reacterr"
	"github.com/agentscope-go/reactcore/toolkit"
)

// callRun carries the state scoped to a single call: its id and the event
// sink every phase emits through. The event channel's capacity is the
// bounded queue of §5: a slow subscriber backs up emission, never the
// underlying model stream directly, so sends never block — a full buffer
// is reported once as Error(overflow) and the call aborts.
type callRun struct {
	e      *Engine
	id     string
	events chan<- hooks.Event

	overflowOnce sync.Once
	overflowed   bool
	overflowMu   sync.Mutex
}

func (r *callRun) isOverflowed() bool {
	r.overflowMu.Lock()
	defer r.overflowMu.Unlock()
	return r.overflowed
}

// triggerOverflow marks the call as overflowed and emits exactly one
// Error(overflow) event, best-effort: if the buffer is still full the
// report itself is dropped rather than blocking, since the caller is about
// to abort the call regardless.
func (r *callRun) triggerOverflow(ctx context.Context) {
	r.overflowOnce.Do(func() {
		r.overflowMu.Lock()
		r.overflowed = true
		r.overflowMu.Unlock()

		r.e.logger.Error(ctx, "engine error", "phase", hooks.PhaseOverflow, "err", reacterr.ErrOverflow)
		r.e.metrics.IncCounter("engine.errors", 1, "phase", string(hooks.PhaseOverflow))
		select {
		case r.events <- hooks.NewError(r.id, hooks.PhaseOverflow, reacterr.ErrOverflow):
		default:
		}
	})
}

// run drives one call's state machine from PreCall through PostCall,
// grounded on the teacher's for-loop-with-deadlines control-flow idiom
// (runDeadlines/run() in the Temporal-backed workflow loop), generalized
// here to a plain reason/act step counter instead of wall-clock deadlines.
func (e *Engine) run(ctx context.Context, input []message.Message, events chan<- hooks.Event) CallResult {
	callID := uuid.NewString()
	r := &callRun{e: e, id: callID, events: events}

	if e.cfg.AgentCallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.AgentCallTimeout)
		defer cancel()
	}

	e.memory.AppendAll(input...)

	if _, err := r.dispatch(ctx, hooks.NewPreCall(callID, input)); err != nil {
		return r.finishOnError(ctx, err)
	}

	var candidate message.Message
	for step := 0; step < e.cfg.MaxIters; step++ {
		cand, err := r.reasoningStep(ctx, step)
		if err != nil {
			return r.finishOnError(ctx, err)
		}
		candidate = cand
		e.memory.Append(candidate)

		toolUses := candidate.ToolUses()
		if len(toolUses) == 0 {
			return r.finish(ctx, candidate, FinishStop)
		}

		suspended, err := r.acting(ctx, step, toolUses)
		if err != nil {
			return r.finishOnError(ctx, err)
		}
		if ctx.Err() != nil {
			return r.finishOnError(ctx, ctx.Err())
		}
		if suspended {
			return r.finish(ctx, candidate, FinishToolSuspended)
		}
	}
	return r.finish(ctx, candidate, FinishMaxIters)
}

// reasoningStep runs one Reasoning phase: build the prompt from the
// current memory snapshot and tool set, stream the model, and merge
// fragments into a single candidate assistant message.
func (r *callRun) reasoningStep(ctx context.Context, step int) (message.Message, error) {
	messages := r.e.memory.Snapshot()
	tools := r.e.toolkit.Descriptors()

	preOut, err := r.dispatch(ctx, hooks.NewPreReasoning(r.id, step, messages, tools))
	if err != nil {
		return message.Message{}, err
	}
	pre := preOut.(hooks.PreReasoningEvent)

	req := modelport.Request{
		SystemPrompt: r.e.cfg.SystemPrompt,
		Messages:     pre.Messages,
		Tools:        pre.Tools,
	}

	fragments, err := r.e.model.Stream(ctx, req)
	if err != nil {
		return message.Message{}, fmt.Errorf("%w: %v", reacterr.ErrModel, err)
	}

	merger := modelport.NewMerger()
	for {
		select {
		case <-ctx.Done():
			return message.Message{}, ctx.Err()
		case frag, more := <-fragments:
			if !more {
				candidate := merger.Finish()
				postOut, err := r.dispatch(ctx, hooks.NewPostReasoning(r.id, step, candidate))
				if err != nil {
					return message.Message{}, err
				}
				return postOut.(hooks.PostReasoningEvent).Candidate, nil
			}
			if frag.Err != nil {
				return message.Message{}, fmt.Errorf("%w: %v", reacterr.ErrModel, frag.Err)
			}
			merger.Add(frag)
			if block, ok := reasoningBlock(frag); ok {
				if overflowed := r.notify(ctx, hooks.NewReasoningChunk(r.id, step, block)); overflowed {
					return message.Message{}, reacterr.ErrOverflow
				}
			}
		}
	}
}

// acting runs one Acting phase: dispatch every tool call concurrently,
// join before appending results to memory in call_id order, and report
// whether any result suspended the call.
func (r *callRun) acting(ctx context.Context, step int, toolUses []message.ToolUseBlock) (bool, error) {
	seen := make(map[string]bool, len(toolUses))
	for _, tu := range toolUses {
		if seen[tu.CallID] {
			return false, errDuplicateCallID
		}
		seen[tu.CallID] = true
	}

	preOut, err := r.dispatch(ctx, hooks.NewPreActing(r.id, step, toolUses))
	if err != nil {
		return false, err
	}
	toolUses = preOut.(hooks.PreActingEvent).ToolUses

	results := make([]toolkit.ToolResult, len(toolUses))
	var wg sync.WaitGroup
	for i, tu := range toolUses {
		wg.Add(1)
		go func(i int, tu message.ToolUseBlock) {
			defer wg.Done()
			results[i] = r.invokeTool(ctx, step, tu)
		}(i, tu)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].CallID < results[j].CallID })

	suspended := false
	msgs := make([]message.Message, 0, len(results))
	for _, res := range results {
		if len(res.OutputBlocks) == 0 && !res.IsError {
			res.OutputBlocks = []message.ContentBlock{message.TextBlock{}}
		}
		msgs = append(msgs, message.NewToolResult(res.CallID, res.OutputBlocks, res.IsError))

		switch res.ErrorKind {
		case toolkit.ErrorTimeout, toolkit.ErrorExecution, toolkit.ErrorCancelled:
			r.emitError(ctx, hooks.PhaseActing, mapToolErr(res.ErrorKind))
		case toolkit.ErrorSuspended:
			suspended = true
		}
	}

	r.e.memory.AppendAll(msgs...)

	if _, err := r.dispatch(ctx, hooks.NewPostActing(r.id, step, msgs)); err != nil {
		return suspended, err
	}
	return suspended, nil
}

func (r *callRun) invokeTool(ctx context.Context, step int, tu message.ToolUseBlock) toolkit.ToolResult {
	ch := r.e.toolkit.Invoke(ctx, tu.CallID, tu.ToolName, tu.Arguments)
	var final toolkit.ToolResult
	for chunk := range ch {
		r.notify(ctx, hooks.NewActingChunk(r.id, step, tu.CallID, chunk))
		if chunk.Kind == toolkit.ChunkResult {
			final = chunk.Result
		}
	}
	return final
}

func (r *callRun) finishOnError(ctx context.Context, err error) CallResult {
	if errors.Is(err, reacterr.ErrOverflow) {
		// triggerOverflow already emitted the single Error(overflow) event;
		// finishOnError just terminates the call.
		return r.finish(ctx, message.Message{}, FinishError)
	}
	if errors.Is(err, reacterr.ErrInvariant) {
		r.emitError(ctx, hooks.PhaseHook, err)
		return r.finish(ctx, message.Message{}, FinishError)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		r.emitError(ctx, hooks.PhaseReasoning, fmt.Errorf("%w: %v", reacterr.ErrCancelled, err))
		terminal := message.NewAssistant([]message.ContentBlock{message.TextBlock{Text: InterruptionMarker}})
		return r.finish(ctx, terminal, FinishError)
	}
	r.emitError(ctx, hooks.PhaseReasoning, err)
	return r.finish(ctx, message.Message{}, FinishError)
}

func (r *callRun) finish(ctx context.Context, terminal message.Message, reason FinishReason) CallResult {
	out, err := r.dispatch(ctx, hooks.NewPostCall(r.id, terminal, string(reason)))
	final := terminal
	if err == nil {
		final = out.(hooks.PostCallEvent).Terminal
	}
	r.e.metrics.IncCounter("engine.call.finish", 1, "reason", string(reason))
	return CallResult{Message: final, FinishReason: reason}
}

// dispatch runs evt through the hook pipeline and forwards its (possibly
// replaced) output to the event stream, for modifiable lifecycle events
// whose replacement the caller needs back. If the event buffer overflowed
// in the process, dispatch reports reacterr.ErrOverflow so the caller
// aborts the call.
func (r *callRun) dispatch(ctx context.Context, evt hooks.Event) (hooks.Event, error) {
	out, err := r.e.pipeline.Dispatch(ctx, evt)
	if err != nil {
		r.emitError(ctx, phaseFor(evt.Kind()), fmt.Errorf("%w", err))
		r.send(ctx, evt)
		if r.isOverflowed() {
			return evt, reacterr.ErrOverflow
		}
		return evt, err
	}
	r.send(ctx, out)
	if r.isOverflowed() {
		return out, reacterr.ErrOverflow
	}
	return out, nil
}

// notify runs evt through the hook pipeline for a notification-only event
// whose replacement (if any) no caller needs back. It reports whether the
// call should abort due to buffer overflow.
func (r *callRun) notify(ctx context.Context, evt hooks.Event) bool {
	out, err := r.e.pipeline.Dispatch(ctx, evt)
	if err != nil {
		r.emitError(ctx, phaseFor(evt.Kind()), fmt.Errorf("%w", err))
		return r.isOverflowed()
	}
	r.send(ctx, out)
	return r.isOverflowed()
}

func (r *callRun) emitError(ctx context.Context, phase hooks.Phase, err error) {
	r.e.logger.Error(ctx, "engine error", "phase", phase, "err", err)
	r.e.metrics.IncCounter("engine.errors", 1, "phase", string(phase))
	r.send(ctx, hooks.NewError(r.id, phase, err))
}

// send forwards evt to the external event stream without ever blocking on
// a slow subscriber: whenever the buffer has room the event is delivered,
// including the Error and PostCall events of a cancelled call, and a full
// buffer is treated as overflow rather than backpressure onto whatever is
// driving the call (the model stream, a tool invocation).
func (r *callRun) send(ctx context.Context, evt hooks.Event) {
	select {
	case r.events <- evt:
	default:
		r.triggerOverflow(ctx)
	}
}

func phaseFor(k hooks.Kind) hooks.Phase {
	switch k {
	case hooks.PreReasoning, hooks.ReasoningChunk, hooks.PostReasoning:
		return hooks.PhaseReasoning
	case hooks.PreActing, hooks.ActingChunk, hooks.PostActing:
		return hooks.PhaseActing
	default:
		return hooks.PhaseHook
	}
}

func reasoningBlock(f modelport.Fragment) (message.ContentBlock, bool) {
	switch f.Kind {
	case modelport.FragmentText:
		return message.TextBlock{Text: f.Text}, true
	case modelport.FragmentThinking:
		return message.ThinkingBlock{Text: f.Text}, true
	default:
		return nil, false
	}
}

func mapToolErr(kind toolkit.ErrorKind) error {
	switch kind {
	case toolkit.ErrorTimeout:
		return reacterr.ErrToolTimeout
	case toolkit.ErrorCancelled:
		return reacterr.ErrCancelled
	default:
		return reacterr.ErrToolExecution
	}
}
