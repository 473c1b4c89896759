package openai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/agentscope-go/reactcore/modelport"
)

// translateStream drains an OpenAI Chat Completions SSE stream, translating
// each chunk into a modelport.Fragment, until the stream ends or ctx is
// cancelled. It always closes out exactly once.
func translateStream(ctx context.Context, stream *ssestream.Stream[openai.ChatCompletionChunk], out chan<- modelport.Fragment) {
	defer close(out)
	defer stream.Close()

	toolNames := map[int64]string{}
	toolCallIDs := map[int64]string{}

	for stream.Next() {
		select {
		case <-ctx.Done():
			send(ctx, out, modelport.Fragment{Err: ctx.Err()})
			return
		default:
		}

		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			if !send(ctx, out, modelport.Fragment{Kind: modelport.FragmentText, Text: choice.Delta.Content}) {
				return
			}
		}

		for _, tc := range choice.Delta.ToolCalls {
			if tc.ID != "" {
				toolCallIDs[tc.Index] = tc.ID
			}
			if tc.Function.Name != "" {
				toolNames[tc.Index] = tc.Function.Name
			}
			frag := modelport.Fragment{
				Kind: modelport.FragmentToolCall,
				ToolCall: modelport.ToolCallDelta{
					CallID:         toolCallIDs[tc.Index],
					ToolName:       toolNames[tc.Index],
					ArgumentsDelta: tc.Function.Arguments,
				},
			}
			toolNames[tc.Index] = ""
			if !send(ctx, out, frag) {
				return
			}
		}

		if chunk.Usage.TotalTokens > 0 {
			usage := modelport.Usage{
				InputTokens:  int(chunk.Usage.PromptTokens),
				OutputTokens: int(chunk.Usage.CompletionTokens),
			}
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
