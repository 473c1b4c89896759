// Package reacterr defines the error kinds shared by the message, toolkit,
// modelport, engine, hooks, and session packages. Each kind is a sentinel
// that callers match with errors.Is; concrete errors wrap the sentinel with
// fmt.Errorf("...: %w", ...) so context survives while the kind stays
// matchable across package boundaries.
package reacterr

import "errors"

var (
	// ErrBadInput indicates a malformed request or invalid identifier. The
	// call fails immediately; memory is never touched.
	ErrBadInput = errors.New("bad input")

	// ErrBadMessage indicates a message could not be decoded, typically
	// because its role or a content block's type tag is unknown.
	ErrBadMessage = errors.New("bad message")

	// ErrBadToolArguments indicates the model emitted tool-call arguments
	// that do not parse as JSON or do not satisfy the tool's schema. The
	// failing call is recorded and the turn continues.
	ErrBadToolArguments = errors.New("bad tool arguments")

	// ErrToolNotFound indicates a tool call referenced a name the toolkit
	// has no registration for.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolExecution indicates a tool executed and returned an error. The
	// matching ToolResult carries IsError=true; the turn continues.
	ErrToolExecution = errors.New("tool execution failed")

	// ErrToolTimeout indicates a tool invocation exceeded its configured
	// execution budget.
	ErrToolTimeout = errors.New("tool execution timed out")

	// ErrToolSuspended indicates a schema-only tool was invoked; the call
	// must be satisfied by an external executor (see the HTTP suspension
	// protocol).
	ErrToolSuspended = errors.New("tool call suspended")

	// ErrModel indicates a model transport or protocol failure. The call
	// terminates with finish reason "error" unless a retry policy recovers.
	ErrModel = errors.New("model error")

	// ErrCancelled indicates cooperative cancellation of an in-flight call.
	// Cancellation is idempotent; repeated cancellation is a no-op.
	ErrCancelled = errors.New("cancelled")

	// ErrHook indicates a hook raised while handling a lifecycle event.
	ErrHook = errors.New("hook error")

	// ErrOverflow indicates a bounded buffer (the model stream queue, the
	// event stream queue) exceeded its configured capacity.
	ErrOverflow = errors.New("buffer overflow")

	// ErrSessionNotFound indicates no document exists for a session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionCorrupt indicates a session document exists but failed to
	// decode, or a component rejected an unknown key under strict loading.
	ErrSessionCorrupt = errors.New("session corrupt")

	// ErrInvariant indicates an engine-level invariant was violated (for
	// example, a duplicate call_id within one turn). The turn fails.
	ErrInvariant = errors.New("invariant violation")
)
