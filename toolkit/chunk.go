package toolkit

import "github.com/agentscope-go/reactcore/message"

// ChunkKind distinguishes streaming output from the terminal marker that
// ends every invocation's chunk sequence.
type ChunkKind string

const (
	ChunkOutput ChunkKind = "output"
	ChunkResult ChunkKind = "result"
)

// ErrorKind tags why a terminal ToolChunk carries is_error=true.
type ErrorKind string

const (
	ErrorNone      ErrorKind = ""
	ErrorBadArgs   ErrorKind = "bad_arguments"
	ErrorNotFound  ErrorKind = "not_found"
	ErrorExecution ErrorKind = "execution"
	ErrorTimeout   ErrorKind = "timeout"
	ErrorCancelled ErrorKind = "cancelled"
	ErrorSuspended ErrorKind = "suspended"
)

// ToolChunk is one element of an invocation's lazy output sequence. A
// sequence contains zero or more ChunkOutput elements followed by exactly
// one ChunkResult element.
type ToolChunk struct {
	CallID string
	Kind   ChunkKind

	// Output carries a partial content block for Kind == ChunkOutput.
	Output message.ContentBlock

	// Result carries the terminal outcome for Kind == ChunkResult.
	Result ToolResult
}

// ToolResult is the terminal outcome of a tool invocation.
type ToolResult struct {
	CallID       string
	OutputBlocks []message.ContentBlock
	IsError      bool
	ErrorKind    ErrorKind
	DurationMs   int64
}

func outputChunk(callID string, block message.ContentBlock) ToolChunk {
	return ToolChunk{CallID: callID, Kind: ChunkOutput, Output: block}
}

func terminalChunk(result ToolResult) ToolChunk {
	return ToolChunk{CallID: result.CallID, Kind: ChunkResult, Result: result}
}

func errorResult(callID string, kind ErrorKind, msg string, durationMs int64) ToolResult {
	return ToolResult{
		CallID:       callID,
		OutputBlocks: []message.ContentBlock{message.TextBlock{Text: msg}},
		IsError:      true,
		ErrorKind:    kind,
		DurationMs:   durationMs,
	}
}
