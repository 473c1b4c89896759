package message

import "github.com/google/uuid"

// Role identifies the speaker of a Message. It is fixed at construction and
// never changes for the lifetime of the message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
	RoleControl   Role = "control"
)

// Message is an immutable, ordered list of content blocks attributed to a
// Role. Messages are appended to Memory by their producer and are never
// mutated afterward; code that needs a changed message builds a new one.
type Message struct {
	// ID is an opaque, process-unique identifier assigned at construction.
	ID string
	// Name optionally identifies the sender (used in multi-agent transcript
	// formatting). Empty when the role alone is sufficient.
	Name string
	// Role is fixed at construction.
	Role Role
	// Blocks is the ordered content. Non-nil but may be empty for control
	// messages.
	Blocks []ContentBlock
	// Metadata carries caller- or system-supplied, JSON-shaped values that
	// ride alongside the message without being sent to a model provider.
	Metadata map[string]any
}

// Option customizes a Message at construction time.
type Option func(*Message)

// WithName sets the sender identity used in multi-agent formatting.
func WithName(name string) Option {
	return func(m *Message) { m.Name = name }
}

// WithMetadata attaches caller-supplied metadata to the message.
func WithMetadata(meta map[string]any) Option {
	return func(m *Message) { m.Metadata = meta }
}

// WithID overrides the generated message ID. Callers restoring a message
// from storage use this to preserve identity across a save/load round trip.
func WithID(id string) Option {
	return func(m *Message) { m.ID = id }
}

// New constructs a Message with a freshly generated ID. blocks may be empty
// (for example, a CONTROL message carrying only metadata).
func New(role Role, blocks []ContentBlock, opts ...Option) Message {
	if blocks == nil {
		blocks = []ContentBlock{}
	}
	m := Message{ID: uuid.NewString(), Role: role, Blocks: blocks}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// NewUser constructs a USER message carrying a single TextBlock.
func NewUser(text string, opts ...Option) Message {
	return New(RoleUser, []ContentBlock{TextBlock{Text: text}}, opts...)
}

// NewAssistant constructs an ASSISTANT message from the given blocks.
func NewAssistant(blocks []ContentBlock, opts ...Option) Message {
	return New(RoleAssistant, blocks, opts...)
}

// NewSystem constructs a SYSTEM message carrying a single TextBlock.
func NewSystem(text string, opts ...Option) Message {
	return New(RoleSystem, []ContentBlock{TextBlock{Text: text}}, opts...)
}

// NewToolResult constructs a TOOL message carrying a single ToolResultBlock
// that answers the given call ID.
func NewToolResult(callID string, output []ContentBlock, isError bool, opts ...Option) Message {
	block := ToolResultBlock{CallID: callID, Output: output, IsError: isError}
	return New(RoleTool, []ContentBlock{block}, opts...)
}

// NewControl constructs a CONTROL message. Control messages carry no
// user-visible content; they exist to mark engine-level events (for
// example, an interruption marker) in the conversational record.
func NewControl(opts ...Option) Message {
	return New(RoleControl, nil, opts...)
}

// ToolUses returns every ToolUseBlock in m, in order.
func (m Message) ToolUses() []ToolUseBlock {
	var out []ToolUseBlock
	for _, b := range m.Blocks {
		if tu, ok := b.(ToolUseBlock); ok {
			out = append(out, tu)
		}
	}
	return out
}

// Text concatenates every TextBlock in m, in order.
func (m Message) Text() string {
	return Text(m.Blocks)
}
