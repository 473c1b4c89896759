// Package modelport abstracts the streaming chat-completions backend the
// engine drives during reasoning. A Port turns one request into a lazy
// sequence of Fragments; provider adapters under modelport/providers/*
// translate those fragments from a concrete SDK's streaming event shape.
package modelport

import (
	"context"

	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/toolkit"
)

// Port is the abstract streaming interface from messages+tools+options to
// response fragments. Implementations MUST close the returned channel
// exactly once, after emitting a terminal Fragment (Kind == FragmentDone or
// an Err is set), and MUST observe ctx cancellation.
type Port interface {
	Stream(ctx context.Context, req Request) (<-chan Fragment, error)
}

// Request is one model invocation: the full message history, the tool
// descriptors currently advertised, and provider-agnostic options.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []message.Message
	Tools        []toolkit.Descriptor
	Temperature  float64
	MaxTokens    int
}

// FragmentKind discriminates the concrete payload carried by a Fragment.
type FragmentKind string

const (
	// FragmentText carries an incremental text delta.
	FragmentText FragmentKind = "text"
	// FragmentThinking carries an incremental reasoning-trace delta.
	FragmentThinking FragmentKind = "thinking"
	// FragmentToolCall carries an incremental tool-call delta, keyed by
	// CallID; argument text across fragments with the same CallID must be
	// concatenated in arrival order before being parsed as JSON.
	FragmentToolCall FragmentKind = "tool_call"
	// FragmentUsage carries token accounting, typically on the final
	// fragment before FragmentDone.
	FragmentUsage FragmentKind = "usage"
	// FragmentDone marks the end of a successful stream. No further
	// fragments follow.
	FragmentDone FragmentKind = "done"
)

// ToolCallDelta is the incremental shape of one tool call as it streams in.
// ToolName and CallID are populated on the first delta for a given CallID;
// subsequent deltas for the same CallID may carry only ArgumentsDelta.
type ToolCallDelta struct {
	CallID         string
	ToolName       string
	ArgumentsDelta string
}

// Usage reports token accounting for a completed request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Fragment is one element of a Port's streaming response. Exactly one of
// the payload fields is meaningful, selected by Kind; Err is set alongside
// a terminal fragment when the stream ended abnormally.
type Fragment struct {
	Kind     FragmentKind
	Text     string
	ToolCall ToolCallDelta
	Usage    Usage
	Err      error
}
