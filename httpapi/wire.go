package httpapi

import (
	"encoding/json"
	"fmt"

	"github.com/agentscope-go/reactcore/engine"
	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/reacterr"
	"github.com/agentscope-go/reactcore/toolkit"
)

// chatRequest is the OpenAI-compatible request body for
// POST /v1/chat/completions, per §6.1.
type chatRequest struct {
	Model      string          `json:"model"`
	Messages   []chatMessage   `json:"messages"`
	Tools      []chatTool      `json:"tools,omitempty"`
	ToolChoice json.RawMessage `json:"tool_choice,omitempty"`
	Stream     bool            `json:"stream,omitempty"`
	SessionID  string          `json:"session_id,omitempty"`
	Agent      string          `json:"agent,omitempty"`
}

// chatMessage is one request-body message: content is either a plain
// string or an array of typed content parts.
type chatMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Strict      bool            `json:"strict,omitempty"`
}

// chatContentPart is one element of a multi-part message content array.
type chatContentPart struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *chatMediaRef `json:"image_url,omitempty"`
}

type chatMediaRef struct {
	URL string `json:"url"`
}

// chatChoice is one response choice, shared by the unary and stream shapes.
type chatChoice struct {
	Index        int             `json:"index"`
	Message      *chatRespMsg    `json:"message,omitempty"`
	Delta        *chatRespDelta  `json:"delta,omitempty"`
	FinishReason *string         `json:"finish_reason,omitempty"`
}

type chatRespMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRespDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// chatResponse is the unary response shape.
type chatResponse struct {
	ID      string       `json:"id"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// decodeMessages converts the request body's messages into the engine's
// canonical message.Message slice.
func decodeMessages(in []chatMessage) ([]message.Message, error) {
	out := make([]message.Message, 0, len(in))
	for i, m := range in {
		role, err := decodeRole(m.Role)
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		blocks, err := decodeContent(m.Content)
		if err != nil {
			return nil, fmt.Errorf("messages[%d].content: %w", i, err)
		}
		if role == message.RoleTool {
			out = append(out, message.NewToolResult(m.ToolCallID, blocks, false))
			continue
		}
		out = append(out, message.New(role, blocks))
	}
	return out, nil
}

func decodeRole(r string) (message.Role, error) {
	switch r {
	case "user":
		return message.RoleUser, nil
	case "assistant":
		return message.RoleAssistant, nil
	case "system":
		return message.RoleSystem, nil
	case "tool":
		return message.RoleTool, nil
	default:
		return "", fmt.Errorf("role %q: %w", r, reacterr.ErrBadMessage)
	}
}

// decodeContent accepts either a plain JSON string or an array of typed
// content parts (text, image_url), per §6.1's "content is text or an array
// of typed content parts matching §3".
func decodeContent(raw json.RawMessage) ([]message.ContentBlock, error) {
	if len(raw) == 0 {
		return []message.ContentBlock{}, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return []message.ContentBlock{message.TextBlock{Text: asString}}, nil
	}
	var parts []chatContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("%w: content is neither a string nor a content-part array", reacterr.ErrBadMessage)
	}
	blocks := make([]message.ContentBlock, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case "text":
			blocks = append(blocks, message.TextBlock{Text: p.Text})
		case "image_url":
			if p.ImageURL == nil {
				return nil, fmt.Errorf("%w: image_url part missing image_url", reacterr.ErrBadMessage)
			}
			blocks = append(blocks, message.ImageBlock{Source: message.MediaSource{URL: p.ImageURL.URL}})
		default:
			return nil, fmt.Errorf("%w: unknown content part type %q", reacterr.ErrBadMessage, p.Type)
		}
	}
	return blocks, nil
}

// decodeTools converts request-body tool descriptors into registrations.
// The chat-completions handler does not call it: tools sent in a request
// body are not registered with the engine, which sees only the agent's
// server-side toolkit.
func decodeTools(in []chatTool) []toolkit.Registration {
	out := make([]toolkit.Registration, 0, len(in))
	for _, t := range in {
		if t.Type != "function" {
			continue
		}
		out = append(out, toolkit.Registration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Strict:      t.Function.Strict,
		})
	}
	return out
}

// encodeFinishReason maps an engine.FinishReason onto its wire string; the
// two vocabularies are defined to coincide (§6.1: "stop|error|tool_suspended|
// max_iters"), but this keeps the response encoder from depending on the
// engine package's string representation staying literally unchanged.
func encodeFinishReason(r engine.FinishReason) string {
	switch r {
	case engine.FinishStop:
		return "stop"
	case engine.FinishError:
		return "error"
	case engine.FinishToolSuspended:
		return "tool_suspended"
	case engine.FinishMaxIters:
		return "max_iters"
	default:
		return "error"
	}
}

func strPtr(s string) *string { return &s }
