package toolkit

import (
	"context"
	"encoding/json"
	"time"
)

// Invoke validates arguments against the named tool's descriptor and
// dispatches it, returning a lazy, finite sequence of ToolChunk values
// ending with exactly one ChunkResult. The channel is always closed by
// Invoke's own goroutine, never by the tool body.
//
// Unknown tool names, schema validation failures, schema-only tools,
// cancellation, and per-tool timeout are all handled here before (or
// instead of) running the registered body, per the invocation contract:
// no user code runs on a validation failure.
func (tk *Toolkit) Invoke(ctx context.Context, callID, toolName string, arguments json.RawMessage) <-chan ToolChunk {
	out := make(chan ToolChunk, 4)

	e, ok := tk.lookup(toolName)
	if !ok {
		go func() {
			defer close(out)
			out <- terminalChunk(errorResult(callID, ErrorNotFound, "unknown tool: "+toolName, 0))
		}()
		return out
	}

	if e.desc.SchemaOnly {
		go func() {
			defer close(out)
			out <- terminalChunk(ToolResult{CallID: callID, IsError: true, ErrorKind: ErrorSuspended})
		}()
		return out
	}

	if err := validateArguments(e.schema, arguments); err != nil {
		go func() {
			defer close(out)
			out <- terminalChunk(errorResult(callID, ErrorBadArgs, err.Error(), 0))
		}()
		return out
	}

	invokeCtx := ctx
	var cancel context.CancelFunc
	if tk.ExecutionTimeout > 0 {
		invokeCtx, cancel = context.WithTimeout(ctx, tk.ExecutionTimeout)
	} else {
		invokeCtx, cancel = context.WithCancel(ctx)
	}

	go func() {
		defer cancel()
		defer close(out)

		start := time.Now()
		ctxResult := func() ToolResult {
			kind := ErrorCancelled
			msg := "tool invocation cancelled"
			if invokeCtx.Err() == context.DeadlineExceeded {
				kind = ErrorTimeout
				msg = "tool invocation timed out"
			}
			return errorResult(callID, kind, msg, time.Since(start).Milliseconds())
		}
		inner := e.invoker(invokeCtx, callID, arguments)

		for {
			select {
			case chunk, more := <-inner:
				if !more {
					if invokeCtx.Err() != nil {
						out <- terminalChunk(ctxResult())
					}
					return
				}
				if chunk.Kind == ChunkResult {
					chunk.Result.DurationMs = time.Since(start).Milliseconds()
					out <- chunk
					drain(inner)
					return
				}
				out <- chunk
			case <-invokeCtx.Done():
				out <- terminalChunk(ctxResult())
				drain(inner)
				return
			}
		}
	}()

	return out
}

// drain consumes and discards any remaining chunks from a tool body that
// kept running past its terminal marker or past cancellation, so a
// misbehaving Invoker can never leak a goroutine blocked on send.
func drain(ch <-chan ToolChunk) {
	go func() {
		for range ch {
		}
	}()
}
