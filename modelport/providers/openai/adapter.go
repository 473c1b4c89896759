// Package openai adapts modelport.Port onto the OpenAI Chat Completions
// streaming API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/modelport"
	"github.com/agentscope-go/reactcore/toolkit"
)

// ChatClient captures the subset of the OpenAI SDK used by the adapter, so
// tests can substitute a fake without a live API key.
type ChatClient interface {
	NewStreaming(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[openai.ChatCompletionChunk]
}

// Port implements modelport.Port on top of an OpenAI Chat Completions
// client.
type Port struct {
	chat         ChatClient
	defaultModel string
}

// New builds an OpenAI-backed Port.
func New(chat ChatClient, defaultModel string) (*Port, error) {
	if chat == nil {
		return nil, errors.New("openai: chat client is required")
	}
	if defaultModel == "" {
		return nil, errors.New("openai: default model is required")
	}
	return &Port{chat: chat, defaultModel: defaultModel}, nil
}

// NewFromAPIKey constructs a Port using the SDK's default HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Port, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return New(&client.Chat.Completions, defaultModel)
}

func (p *Port) Stream(ctx context.Context, req modelport.Request) (<-chan modelport.Fragment, error) {
	params, err := p.prepareRequest(req)
	if err != nil {
		return nil, err
	}

	stream := p.chat.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, &modelport.ProviderError{
			Provider:  "openai",
			Operation: "chat.completions.stream",
			Kind:      modelport.ProviderErrorUnknown,
			Cause:     err,
		}
	}

	out := make(chan modelport.Fragment, 32)
	go translateStream(ctx, stream, out)
	return out, nil
}

func (p *Port) prepareRequest(req modelport.Request) (openai.ChatCompletionNewParams, error) {
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, errors.New("openai: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = p.defaultModel
	}

	var msgs []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		encoded, err := encodeMessage(m)
		if err != nil {
			return openai.ChatCompletionNewParams{}, err
		}
		msgs = append(msgs, encoded...)
	}

	params := openai.ChatCompletionNewParams{
		Model:    modelID,
		Messages: msgs,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if tools := encodeTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}
	return params, nil
}

func encodeMessage(m message.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	var out []openai.ChatCompletionMessageParamUnion
	for _, b := range m.Blocks {
		switch v := b.(type) {
		case message.TextBlock:
			switch m.Role {
			case message.RoleUser:
				out = append(out, openai.UserMessage(v.Text))
			case message.RoleAssistant:
				out = append(out, openai.AssistantMessage(v.Text))
			case message.RoleSystem:
				out = append(out, openai.SystemMessage(v.Text))
			}
		case message.ToolUseBlock:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					ToolCalls: []openai.ChatCompletionMessageToolCallParam{{
						ID: v.CallID,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      v.ToolName,
							Arguments: string(v.Arguments),
						},
					}},
				},
			})
		case message.ToolResultBlock:
			out = append(out, openai.ToolMessage(message.Text(v.Output), v.CallID))
		default:
			return nil, fmt.Errorf("openai: unsupported block type %q", b.BlockType())
		}
	}
	return out, nil
}

func encodeTools(descs []toolkit.Descriptor) []openai.ChatCompletionToolParam {
	if len(descs) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolParam, 0, len(descs))
	for _, d := range descs {
		var schema map[string]any
		_ = json.Unmarshal(d.Schema, &schema)
		out = append(out, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  schema,
				Strict:      openai.Bool(d.Strict),
			},
		})
	}
	return out
}
