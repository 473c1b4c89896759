package modelport

import (
	"encoding/json"
	"fmt"

	"github.com/agentscope-go/reactcore/message"
)

// Merger accumulates a Port's Fragment stream into a single assistant
// Message, applying the engine-side merging rules: text and thinking
// fragments concatenate in arrival order; tool-call argument deltas
// concatenate per CallID and are parsed as JSON only once the stream ends.
// A Merger is single-use: construct one per reasoning step.
type Merger struct {
	text      string
	thinking  string
	toolOrder []string
	toolCalls map[string]*pendingToolCall
	usage     Usage
}

type pendingToolCall struct {
	name string
	args string
}

// NewMerger constructs an empty Merger.
func NewMerger() *Merger {
	return &Merger{toolCalls: map[string]*pendingToolCall{}}
}

// Add folds one fragment into the accumulator. Callers call this for every
// fragment except the terminal FragmentDone.
func (m *Merger) Add(f Fragment) {
	switch f.Kind {
	case FragmentText:
		m.text += f.Text
	case FragmentThinking:
		m.thinking += f.Text
	case FragmentToolCall:
		tc, ok := m.toolCalls[f.ToolCall.CallID]
		if !ok {
			tc = &pendingToolCall{}
			m.toolCalls[f.ToolCall.CallID] = tc
			m.toolOrder = append(m.toolOrder, f.ToolCall.CallID)
		}
		if f.ToolCall.ToolName != "" {
			tc.name = f.ToolCall.ToolName
		}
		tc.args += f.ToolCall.ArgumentsDelta
	case FragmentUsage:
		m.usage = f.Usage
	}
}

// Usage returns the last-seen usage fragment, if any.
func (m *Merger) Usage() Usage { return m.usage }

// Finish renders the accumulated fragments into a single assistant Message.
// Tool-call arguments are parsed as JSON here, at stream end, exactly once
// per call_id; a parse failure does not fail the whole message — it yields
// a ToolUseBlock whose Arguments is the raw text encoded as a JSON string,
// which the toolkit's own argument validation then rejects with a
// structured error.
func (m *Merger) Finish() message.Message {
	var blocks []message.ContentBlock
	if m.thinking != "" {
		blocks = append(blocks, message.ThinkingBlock{Text: m.thinking})
	}
	if m.text != "" {
		blocks = append(blocks, message.TextBlock{Text: m.text})
	}

	for _, callID := range m.toolOrder {
		tc := m.toolCalls[callID]
		args := json.RawMessage(tc.args)
		if !json.Valid(args) {
			args = json.RawMessage(fmt.Sprintf("%q", tc.args))
		}
		blocks = append(blocks, message.ToolUseBlock{
			CallID:    callID,
			ToolName:  tc.name,
			Arguments: args,
		})
	}

	return message.NewAssistant(blocks)
}
