package message

import (
	"encoding/json"
	"fmt"

	"github.com/agentscope-go/reactcore/reacterr"
)

// wireMessage is the canonical JSON shape for a Message. ContentBlock values
// are encoded through wireBlock so the "type" discriminator round-trips.
type wireMessage struct {
	ID       string           `json:"id"`
	Name     string           `json:"name,omitempty"`
	Role     Role             `json:"role"`
	Blocks   []json.RawMessage `json:"blocks"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

// MarshalJSON encodes m using the canonical, type-tagged block encoding.
// Every block type defined in this package round-trips; there is no silent
// drop path.
func (m Message) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(m.Blocks))
	for i, b := range m.Blocks {
		enc, err := encodeBlock(b)
		if err != nil {
			return nil, fmt.Errorf("message: encode blocks[%d]: %w", i, err)
		}
		raw = append(raw, enc)
	}
	return json.Marshal(wireMessage{
		ID:       m.ID,
		Name:     m.Name,
		Role:     m.Role,
		Blocks:   raw,
		Metadata: m.Metadata,
	})
}

// UnmarshalJSON decodes m from the canonical encoding. Decoding fails with
// ErrBadMessage if the role or any block's "type" tag is unrecognized —
// unknown variants are never silently dropped.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("message: decode: %w", err)
	}
	if !validRole(w.Role) {
		return fmt.Errorf("message: role %q: %w", w.Role, reacterr.ErrBadMessage)
	}
	blocks := make([]ContentBlock, 0, len(w.Blocks))
	for i, raw := range w.Blocks {
		b, err := decodeBlock(raw)
		if err != nil {
			return fmt.Errorf("message: decode blocks[%d]: %w", i, err)
		}
		blocks = append(blocks, b)
	}
	m.ID = w.ID
	m.Name = w.Name
	m.Role = w.Role
	m.Blocks = blocks
	m.Metadata = w.Metadata
	return nil
}

func validRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool, RoleControl:
		return true
	default:
		return false
	}
}

type tagged struct {
	Type BlockType `json:"type"`
}

// encodeBlock dispatches to b's own MarshalJSON, which every concrete block
// type below implements to attach the "type" discriminator. Rejecting
// anything outside the known set here keeps the error path identical to
// before: an unrecognized implementation of ContentBlock never silently
// encodes without a tag.
func encodeBlock(b ContentBlock) (json.RawMessage, error) {
	switch b.(type) {
	case TextBlock, ThinkingBlock, ImageBlock, AudioBlock, VideoBlock, ToolUseBlock, ToolResultBlock:
		return json.Marshal(b)
	default:
		return nil, fmt.Errorf("message: unknown block type %T: %w", b, reacterr.ErrBadMessage)
	}
}

// MarshalJSON implementations below attach the "type" discriminator via a
// named alias embedded alongside it — a type parameter cannot be embedded
// as a struct field, so each block type gets its own method rather than a
// shared generic encoder. ToolResultBlock's Output is itself a slice of
// ContentBlock; since every element already carries its own MarshalJSON,
// encoding it recurses and tags each nested block automatically.

func (b TextBlock) MarshalJSON() ([]byte, error) {
	type alias TextBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{Type: BlockText, alias: alias(b)})
}

func (b ThinkingBlock) MarshalJSON() ([]byte, error) {
	type alias ThinkingBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{Type: BlockThinking, alias: alias(b)})
}

func (b ImageBlock) MarshalJSON() ([]byte, error) {
	type alias ImageBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{Type: BlockImage, alias: alias(b)})
}

func (b AudioBlock) MarshalJSON() ([]byte, error) {
	type alias AudioBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{Type: BlockAudio, alias: alias(b)})
}

func (b VideoBlock) MarshalJSON() ([]byte, error) {
	type alias VideoBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{Type: BlockVideo, alias: alias(b)})
}

func (b ToolUseBlock) MarshalJSON() ([]byte, error) {
	type alias ToolUseBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{Type: BlockToolUse, alias: alias(b)})
}

func (b ToolResultBlock) MarshalJSON() ([]byte, error) {
	type alias ToolResultBlock
	return json.Marshal(struct {
		Type BlockType `json:"type"`
		alias
	}{Type: BlockToolResult, alias: alias(b)})
}

func decodeBlock(raw json.RawMessage) (ContentBlock, error) {
	var tag tagged
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("decode block tag: %w", err)
	}
	switch tag.Type {
	case BlockText:
		var v TextBlock
		return v, unmarshalInto(raw, &v)
	case BlockThinking:
		var v ThinkingBlock
		return v, unmarshalInto(raw, &v)
	case BlockImage:
		var v ImageBlock
		return v, unmarshalInto(raw, &v)
	case BlockAudio:
		var v AudioBlock
		return v, unmarshalInto(raw, &v)
	case BlockVideo:
		var v VideoBlock
		return v, unmarshalInto(raw, &v)
	case BlockToolUse:
		var v ToolUseBlock
		return v, unmarshalInto(raw, &v)
	case BlockToolResult:
		return decodeToolResult(raw)
	default:
		return nil, fmt.Errorf("message: unknown block type %q: %w", tag.Type, reacterr.ErrBadMessage)
	}
}

func unmarshalInto[T any](raw json.RawMessage, v *T) error {
	return json.Unmarshal(raw, v)
}

// decodeToolResult needs custom handling because ToolResultBlock.Output is
// itself a slice of ContentBlock and must recurse through decodeBlock rather
// than rely on json.Unmarshal's default (interface-less) behavior.
func decodeToolResult(raw json.RawMessage) (ContentBlock, error) {
	var wire struct {
		CallID  string            `json:"call_id"`
		Output  []json.RawMessage `json:"output_blocks"`
		IsError bool              `json:"is_error"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	out := make([]ContentBlock, 0, len(wire.Output))
	for i, o := range wire.Output {
		b, err := decodeBlock(o)
		if err != nil {
			return nil, fmt.Errorf("output_blocks[%d]: %w", i, err)
		}
		out = append(out, b)
	}
	return ToolResultBlock{CallID: wire.CallID, Output: out, IsError: wire.IsError}, nil
}
