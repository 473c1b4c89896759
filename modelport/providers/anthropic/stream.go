package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/agentscope-go/reactcore/modelport"
)

// translateStream drains the Anthropic SSE stream, translating each event
// into a modelport.Fragment, until the stream ends or ctx is cancelled. It
// always closes out exactly once.
func translateStream(ctx context.Context, stream *ssestream.Stream[sdk.MessageStreamEventUnion], out chan<- modelport.Fragment) {
	defer close(out)
	defer stream.Close()

	// toolNames tracks the tool name announced at each content-block index so
	// later InputJSONDelta events (which carry no name) can be tagged with
	// the matching call_id.
	toolCallIDs := map[int64]string{}
	toolNames := map[int64]string{}

	for stream.Next() {
		select {
		case <-ctx.Done():
			send(ctx, out, modelport.Fragment{Err: ctx.Err()})
			return
		default:
		}

		event := stream.Current()
		switch ev := event.AsAny().(type) { //nolint:exhaustive
		case sdk.ContentBlockStartEvent:
			if tu := ev.ContentBlock.AsAny(); tu != nil {
				if t, ok := tu.(sdk.ToolUseBlock); ok {
					toolCallIDs[ev.Index] = t.ID
					toolNames[ev.Index] = t.Name
				}
			}
		case sdk.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case sdk.TextDelta:
				if !send(ctx, out, modelport.Fragment{Kind: modelport.FragmentText, Text: delta.Text}) {
					return
				}
			case sdk.ThinkingDelta:
				if !send(ctx, out, modelport.Fragment{Kind: modelport.FragmentThinking, Text: delta.Thinking}) {
					return
				}
			case sdk.InputJSONDelta:
				frag := modelport.Fragment{
					Kind: modelport.FragmentToolCall,
					ToolCall: modelport.ToolCallDelta{
						CallID:         toolCallIDs[ev.Index],
						ToolName:       toolNames[ev.Index],
						ArgumentsDelta: delta.PartialJSON,
					},
				}
				toolNames[ev.Index] = "" // name only needs to ride the first delta
				if !send(ctx, out, frag) {
					return
				}
			}
		case sdk.MessageDeltaEvent:
			usage := modelport.Usage{OutputTokens: int(ev.Usage.OutputTokens)}
			if !send(ctx, out, modelport.Fragment{Kind: modelport.FragmentUsage, Usage: usage}) {
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		send(ctx, out, modelport.Fragment{Err: err})
		return
	}
	send(ctx, out, modelport.Fragment{Kind: modelport.FragmentDone})
}

func send(ctx context.Context, out chan<- modelport.Fragment, f modelport.Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
