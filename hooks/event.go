// Package hooks implements the ordered lifecycle-interceptor pipeline: a
// tagged union of HookEvent values dispatched to priority-ordered Hooks.
// This replaces pattern-matching dispatch over event types with an explicit
// Kind() discriminator and a single HandleEvent entry point per hook.
package hooks

import (
	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/toolkit"
)

// Kind discriminates the concrete HookEvent carried through the pipeline.
type Kind string

const (
	PreCall        Kind = "pre_call"
	PreReasoning   Kind = "pre_reasoning"
	ReasoningChunk Kind = "reasoning_chunk"
	PostReasoning  Kind = "post_reasoning"
	PreActing      Kind = "pre_acting"
	ActingChunk    Kind = "acting_chunk"
	PostActing     Kind = "post_acting"
	PostCall       Kind = "post_call"
	ErrorEvent     Kind = "error"
)

// Phase names the step a hook error occurred in, carried by an Error event.
type Phase string

const (
	PhaseReasoning Phase = "reasoning"
	PhaseActing    Phase = "acting"
	PhaseHook      Phase = "hook"
	PhaseOverflow  Phase = "overflow"
)

// Event is the tagged union every lifecycle event implements. Notification
// events (PreCall, ReasoningChunk, ActingChunk, Error) are delivered for
// observation only — a hook's replacement is discarded for these. Modifiable
// events (PreReasoning, PostReasoning, PreActing, PostActing, PostCall) carry
// the output of the last hook forward to the next.
type Event interface {
	Kind() Kind
	// CallID identifies the top-level agent invocation this event belongs to.
	CallID() string
}

type base struct {
	callID string
}

func (b base) CallID() string { return b.callID }

type (
	// PreCallEvent fires once per call, before the first reasoning step.
	PreCallEvent struct {
		base
		Input []message.Message
	}

	// PreReasoningEvent fires before each model invocation. A hook may
	// replace Messages or Tools; the replacement is visible to the model
	// port call that follows.
	PreReasoningEvent struct {
		base
		Step     int
		Messages []message.Message
		Tools    []toolkit.Descriptor
	}

	// ReasoningChunkEvent fires once per streamed model fragment.
	ReasoningChunkEvent struct {
		base
		Step  int
		Block message.ContentBlock
	}

	// PostReasoningEvent fires once the model finishes one step. A hook may
	// replace Candidate before tool dispatch (or before the turn ends, if
	// Candidate carries no ToolUse blocks).
	PostReasoningEvent struct {
		base
		Step      int
		Candidate message.Message
	}

	// PreActingEvent fires before dispatching the step's tool calls. A hook
	// may add, remove, or replace entries in ToolUses.
	PreActingEvent struct {
		base
		Step     int
		ToolUses []message.ToolUseBlock
	}

	// ActingChunkEvent fires once per streamed tool fragment.
	ActingChunkEvent struct {
		base
		Step       int
		ToolCallID string
		Chunk      toolkit.ToolChunk
	}

	// PostActingEvent fires once every tool call in the step has finished.
	// A hook may replace Results (the ordered tool-result messages).
	PostActingEvent struct {
		base
		Step    int
		Results []message.Message
	}

	// PostCallEvent fires once per call, after the loop terminates. A hook
	// may replace Terminal, the final assistant message returned to the
	// caller. FinishReason mirrors the HTTP adapter's finish_reason values:
	// "stop", "error", "tool_suspended", or "max_iters".
	PostCallEvent struct {
		base
		Terminal     message.Message
		FinishReason string
	}

	// ErrorPayload fires whenever any step raises. It never terminates the
	// pipeline by itself; the engine decides recovery per its own policy.
	ErrorPayload struct {
		base
		Phase Phase
		Err   error
	}
)

func (PreCallEvent) Kind() Kind        { return PreCall }
func (PreReasoningEvent) Kind() Kind   { return PreReasoning }
func (ReasoningChunkEvent) Kind() Kind { return ReasoningChunk }
func (PostReasoningEvent) Kind() Kind  { return PostReasoning }
func (PreActingEvent) Kind() Kind      { return PreActing }
func (ActingChunkEvent) Kind() Kind    { return ActingChunk }
func (PostActingEvent) Kind() Kind     { return PostActing }
func (PostCallEvent) Kind() Kind       { return PostCall }
func (ErrorPayload) Kind() Kind        { return ErrorEvent }

// NewPreCall, NewPreReasoning, ... construct events with their CallID set;
// callers build the rest of the struct with field literals.
func NewPreCall(callID string, input []message.Message) PreCallEvent {
	return PreCallEvent{base: base{callID}, Input: input}
}

func NewPreReasoning(callID string, step int, messages []message.Message, tools []toolkit.Descriptor) PreReasoningEvent {
	return PreReasoningEvent{base: base{callID}, Step: step, Messages: messages, Tools: tools}
}

func NewReasoningChunk(callID string, step int, block message.ContentBlock) ReasoningChunkEvent {
	return ReasoningChunkEvent{base: base{callID}, Step: step, Block: block}
}

func NewPostReasoning(callID string, step int, candidate message.Message) PostReasoningEvent {
	return PostReasoningEvent{base: base{callID}, Step: step, Candidate: candidate}
}

func NewPreActing(callID string, step int, toolUses []message.ToolUseBlock) PreActingEvent {
	return PreActingEvent{base: base{callID}, Step: step, ToolUses: toolUses}
}

func NewActingChunk(callID string, step int, toolCallID string, chunk toolkit.ToolChunk) ActingChunkEvent {
	return ActingChunkEvent{base: base{callID}, Step: step, ToolCallID: toolCallID, Chunk: chunk}
}

func NewPostActing(callID string, step int, results []message.Message) PostActingEvent {
	return PostActingEvent{base: base{callID}, Step: step, Results: results}
}

func NewPostCall(callID string, terminal message.Message, finishReason string) PostCallEvent {
	return PostCallEvent{base: base{callID}, Terminal: terminal, FinishReason: finishReason}
}

func NewError(callID string, phase Phase, err error) ErrorPayload {
	return ErrorPayload{base: base{callID}, Phase: phase, Err: err}
}

// Modifiable reports whether hooks observing this event kind may replace it.
func Modifiable(k Kind) bool {
	switch k {
	case PreReasoning, PostReasoning, PreActing, PostActing, PostCall:
		return true
	default:
		return false
	}
}
