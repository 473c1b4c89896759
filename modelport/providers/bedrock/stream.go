package bedrock

import (
	"context"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/agentscope-go/reactcore/modelport"
)

// translateStream drains a Bedrock Converse event stream, translating each
// event into a modelport.Fragment, until the stream ends or ctx is
// cancelled. It always closes out exactly once.
func translateStream(ctx context.Context, stream *brtypes.ConverseStreamOutput, out chan<- modelport.Fragment) {
	defer close(out)
	ch := stream.Reader.Events()
	defer stream.Reader.Close()

	toolNames := map[int32]string{}
	toolCallIDs := map[int32]string{}

	for {
		select {
		case <-ctx.Done():
			send(ctx, out, modelport.Fragment{Err: ctx.Err()})
			return
		case event, more := <-ch:
			if !more {
				if err := stream.Reader.Err(); err != nil {
					send(ctx, out, modelport.Fragment{Err: err})
					return
				}
				send(ctx, out, modelport.Fragment{Kind: modelport.FragmentDone})
				return
			}
			if !handleEvent(ctx, event, toolNames, toolCallIDs, out) {
				return
			}
		}
	}
}

func handleEvent(ctx context.Context, event brtypes.ConverseStreamOutput, toolNames, toolCallIDs map[int32]string, out chan<- modelport.Fragment) bool {
	switch ev := event.(type) {
	case *brtypes.ConverseStreamOutputMemberContentBlockStart:
		if tu, ok := ev.Value.Start.(*brtypes.ContentBlockStartMemberToolUse); ok {
			if tu.Value.Name != nil {
				toolNames[ev.Value.ContentBlockIndex] = *tu.Value.Name
			}
			if tu.Value.ToolUseId != nil {
				toolCallIDs[ev.Value.ContentBlockIndex] = *tu.Value.ToolUseId
			}
		}
		return true
	case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
		switch delta := ev.Value.Delta.(type) {
		case *brtypes.ContentBlockDeltaMemberText:
			return send(ctx, out, modelport.Fragment{Kind: modelport.FragmentText, Text: delta.Value})
		case *brtypes.ContentBlockDeltaMemberToolUse:
			if delta.Value.Input == nil {
				return true
			}
			frag := modelport.Fragment{
				Kind: modelport.FragmentToolCall,
				ToolCall: modelport.ToolCallDelta{
					CallID:         toolCallIDs[ev.Value.ContentBlockIndex],
					ToolName:       toolNames[ev.Value.ContentBlockIndex],
					ArgumentsDelta: *delta.Value.Input,
				},
			}
			toolNames[ev.Value.ContentBlockIndex] = ""
			return send(ctx, out, frag)
		}
		return true
	case *brtypes.ConverseStreamOutputMemberMetadata:
		if ev.Value.Usage != nil {
			usage := modelport.Usage{
				InputTokens:  int(derefInt32(ev.Value.Usage.InputTokens)),
				OutputTokens: int(derefInt32(ev.Value.Usage.OutputTokens)),
			}
			return send(ctx, out, modelport.Fragment{Kind: modelport.FragmentUsage, Usage: usage})
		}
		return true
	default:
		return true
	}
}

func derefInt32(p *int32) int32 {
	if p == nil {
		return 0
	}
	return *p
}

func send(ctx context.Context, out chan<- modelport.Fragment, f modelport.Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}
