// Package anthropic adapts modelport.Port onto the Anthropic Claude
// Messages streaming API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/modelport"
	"github.com/agentscope-go/reactcore/toolkit"
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter, so tests can substitute a fake without a live API key.
type MessagesClient interface {
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Port implements modelport.Port on top of an Anthropic Messages client.
type Port struct {
	msg          MessagesClient
	defaultModel string
	maxTokens    int
}

// New builds an Anthropic-backed Port. maxTokens is the completion cap used
// when a Request does not specify one.
func New(msg MessagesClient, defaultModel string, maxTokens int) (*Port, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if defaultModel == "" {
		return nil, errors.New("anthropic: default model is required")
	}
	return &Port{msg: msg, defaultModel: defaultModel, maxTokens: maxTokens}, nil
}

// NewFromAPIKey constructs a Port using the SDK's default HTTP client.
func NewFromAPIKey(apiKey, defaultModel string, maxTokens int) (*Port, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&client.Messages, defaultModel, maxTokens)
}

func (p *Port) Stream(ctx context.Context, req modelport.Request) (<-chan modelport.Fragment, error) {
	params, err := p.prepareRequest(req)
	if err != nil {
		return nil, err
	}

	stream := p.msg.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, &modelport.ProviderError{
			Provider:  "anthropic",
			Operation: "messages.stream",
			Kind:      classifyErr(err),
			Cause:     err,
		}
	}

	out := make(chan modelport.Fragment, 32)
	go translateStream(ctx, stream, out)
	return out, nil
}

func (p *Port) prepareRequest(req modelport.Request) (sdk.MessageNewParams, error) {
	if len(req.Messages) == 0 {
		return sdk.MessageNewParams{}, errors.New("anthropic: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	if maxTokens <= 0 {
		return sdk.MessageNewParams{}, errors.New("anthropic: max_tokens must be positive")
	}

	msgs, err := encodeMessages(req.Messages)
	if err != nil {
		return sdk.MessageNewParams{}, err
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if req.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	if tools := encodeTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}
	return params, nil
}

func encodeMessages(msgs []message.Message) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Blocks))
		for _, b := range m.Blocks {
			switch v := b.(type) {
			case message.TextBlock:
				if v.Text != "" {
					blocks = append(blocks, sdk.NewTextBlock(v.Text))
				}
			case message.ToolUseBlock:
				var input any
				_ = json.Unmarshal(v.Arguments, &input)
				blocks = append(blocks, sdk.NewToolUseBlock(v.CallID, input, v.ToolName))
			case message.ToolResultBlock:
				blocks = append(blocks, sdk.NewToolResultBlock(v.CallID, message.Text(v.Output), v.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case message.RoleUser, message.RoleTool:
			out = append(out, sdk.NewUserMessage(blocks...))
		case message.RoleAssistant:
			out = append(out, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, fmt.Errorf("anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("anthropic: at least one user/assistant message is required")
	}
	return out, nil
}

func encodeTools(descs []toolkit.Descriptor) []sdk.ToolUnionParam {
	if len(descs) == 0 {
		return nil
	}
	out := make([]sdk.ToolUnionParam, 0, len(descs))
	for _, d := range descs {
		var schema map[string]any
		_ = json.Unmarshal(d.Schema, &schema)
		u := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: schema}, d.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(d.Description)
		}
		out = append(out, u)
	}
	return out
}

func classifyErr(err error) modelport.ProviderErrorKind {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return modelport.ProviderErrorAuth
		case 429:
			return modelport.ProviderErrorRateLimited
		case 400, 422:
			return modelport.ProviderErrorInvalidRequest
		default:
			if apiErr.StatusCode >= 500 {
				return modelport.ProviderErrorUnavailable
			}
		}
	}
	return modelport.ProviderErrorUnknown
}
