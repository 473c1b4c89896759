// Package bedrock adapts modelport.Port onto the AWS Bedrock Converse
// streaming API.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/modelport"
	"github.com/agentscope-go/reactcore/toolkit"
)

// RuntimeClient captures the subset of the AWS Bedrock runtime client used
// by the adapter; it is satisfied by *bedrockruntime.Client.
type RuntimeClient interface {
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// Port implements modelport.Port on top of AWS Bedrock Converse.
type Port struct {
	runtime      RuntimeClient
	defaultModel string
	maxTokens    int
}

// New builds a Bedrock-backed Port.
func New(runtime RuntimeClient, defaultModel string, maxTokens int) (*Port, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if defaultModel == "" {
		return nil, errors.New("bedrock: default model is required")
	}
	return &Port{runtime: runtime, defaultModel: defaultModel, maxTokens: maxTokens}, nil
}

func (p *Port) Stream(ctx context.Context, req modelport.Request) (<-chan modelport.Fragment, error) {
	input, err := p.prepareRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.runtime.ConverseStream(ctx, input)
	if err != nil {
		return nil, &modelport.ProviderError{
			Provider:  "bedrock",
			Operation: "converse_stream",
			Kind:      modelport.ProviderErrorUnknown,
			Cause:     err,
		}
	}

	out := make(chan modelport.Fragment, 32)
	go translateStream(ctx, resp.GetStream(), out)
	return out, nil
}

func (p *Port) prepareRequest(req modelport.Request) (*bedrockruntime.ConverseStreamInput, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("bedrock: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = p.defaultModel
	}

	msgs, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	input := &bedrockruntime.ConverseStreamInput{
		ModelId:  &modelID,
		Messages: msgs,
	}
	if req.SystemPrompt != "" {
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: req.SystemPrompt}}
	}
	if tools := encodeTools(req.Tools); len(tools) > 0 {
		input.ToolConfig = &brtypes.ToolConfiguration{Tools: tools}
	}
	return input, nil
}

func encodeMessages(msgs []message.Message) ([]brtypes.Message, error) {
	out := make([]brtypes.Message, 0, len(msgs))
	for _, m := range msgs {
		var role brtypes.ConversationRole
		switch m.Role {
		case message.RoleUser, message.RoleTool:
			role = brtypes.ConversationRoleUser
		case message.RoleAssistant:
			role = brtypes.ConversationRoleAssistant
		default:
			continue
		}

		var blocks []brtypes.ContentBlock
		for _, b := range m.Blocks {
			switch v := b.(type) {
			case message.TextBlock:
				if v.Text != "" {
					blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: v.Text})
				}
			case message.ToolUseBlock:
				var input document.Interface
				var decoded map[string]any
				_ = json.Unmarshal(v.Arguments, &decoded)
				input = document.NewLazyDocument(decoded)
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{
					Value: brtypes.ToolUseBlock{ToolUseId: &v.CallID, Name: &v.ToolName, Input: input},
				})
			case message.ToolResultBlock:
				status := brtypes.ToolResultStatusSuccess
				if v.IsError {
					status = brtypes.ToolResultStatusError
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolResult{
					Value: brtypes.ToolResultBlock{
						ToolUseId: &v.CallID,
						Status:    status,
						Content:   []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberText{Value: message.Text(v.Output)}},
					},
				})
			}
		}
		if len(blocks) == 0 {
			continue
		}
		out = append(out, brtypes.Message{Role: role, Content: blocks})
	}
	if len(out) == 0 {
		return nil, errors.New("bedrock: at least one user/assistant message is required")
	}
	return out, nil
}

func encodeTools(descs []toolkit.Descriptor) []brtypes.Tool {
	if len(descs) == 0 {
		return nil
	}
	out := make([]brtypes.Tool, 0, len(descs))
	for _, d := range descs {
		var schema map[string]any
		_ = json.Unmarshal(d.Schema, &schema)
		name, desc := d.Name, d.Description
		out = append(out, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        &name,
				Description: &desc,
				InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			},
		})
	}
	return out
}
