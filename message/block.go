// Package message defines the typed, immutable message and content-block
// model shared by memory, the model port, the toolkit, and the HTTP
// adapter. Messages are produced once by their owner (user code, the model
// driver, or the toolkit) and never mutated afterward; callers that need a
// different message construct a new one.
package message

import "encoding/json"

// BlockType discriminates the concrete kind of a ContentBlock. It is also
// the JSON "type" tag used by the canonical encoding.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockThinking   BlockType = "thinking"
	BlockImage      BlockType = "image"
	BlockAudio      BlockType = "audio"
	BlockVideo      BlockType = "video"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is the tagged union of content a Message can carry. Concrete
// implementations are TextBlock, ThinkingBlock, ImageBlock, AudioBlock,
// VideoBlock, ToolUseBlock, and ToolResultBlock.
type ContentBlock interface {
	// BlockType returns the discriminator used for JSON encoding and for
	// callers that need to dispatch on block kind without a type switch.
	BlockType() BlockType
}

// MediaSource locates an image/audio/video payload. Exactly one of URL or
// Data should be set; when Data is set, MIMEType must describe it.
type MediaSource struct {
	// URL references externally hosted media. Empty when the payload is
	// inlined via Data.
	URL string `json:"url,omitempty"`
	// Data carries a base64-decoded payload embedded in the block. Empty
	// when URL is set.
	Data []byte `json:"data,omitempty"`
	// MIMEType describes Data's encoding (e.g. "image/png"). Ignored when
	// URL is set.
	MIMEType string `json:"mime_type,omitempty"`
}

type (
	// TextBlock is plain user- or model-visible text.
	TextBlock struct {
		Text string `json:"text"`
	}

	// ThinkingBlock is a reasoning trace. It is not forwarded to downstream
	// users by default; callers that render transcripts must opt in.
	ThinkingBlock struct {
		Text string `json:"text"`
	}

	// ImageBlock carries an image, either by URL or inline base64 payload.
	ImageBlock struct {
		Source MediaSource `json:"source"`
	}

	// AudioBlock carries audio, either by URL or inline base64 payload.
	AudioBlock struct {
		Source MediaSource `json:"source"`
	}

	// VideoBlock carries video, either by URL or inline base64 payload.
	VideoBlock struct {
		Source MediaSource `json:"source"`
	}

	// ToolUseBlock requests a tool invocation. CallID uniquely identifies
	// this call within the turn; a matching ToolResultBlock with the same
	// CallID must follow later in the same message sequence.
	ToolUseBlock struct {
		CallID    string          `json:"call_id"`
		ToolName  string          `json:"tool_name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	// ToolResultBlock carries the outcome of a prior ToolUseBlock with the
	// same CallID.
	ToolResultBlock struct {
		CallID  string         `json:"call_id"`
		Output  []ContentBlock `json:"output_blocks"`
		IsError bool           `json:"is_error"`
	}
)

func (TextBlock) BlockType() BlockType       { return BlockText }
func (ThinkingBlock) BlockType() BlockType   { return BlockThinking }
func (ImageBlock) BlockType() BlockType      { return BlockImage }
func (AudioBlock) BlockType() BlockType      { return BlockAudio }
func (VideoBlock) BlockType() BlockType      { return BlockVideo }
func (ToolUseBlock) BlockType() BlockType    { return BlockToolUse }
func (ToolResultBlock) BlockType() BlockType { return BlockToolResult }

// Text extracts and concatenates every TextBlock in blocks, in order,
// ignoring all other block types. It is the canonical way to get a plain
// string summary of a message for logging or non-multimodal display.
func Text(blocks []ContentBlock) string {
	var out string
	for _, b := range blocks {
		if t, ok := b.(TextBlock); ok {
			out += t.Text
		}
	}
	return out
}
