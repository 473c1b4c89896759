package message_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentscope-go/reactcore/message"
)

func TestNewUserTextExtraction(t *testing.T) {
	m := message.NewUser("hello")
	require.Equal(t, "hello", m.Text())
	require.Equal(t, message.RoleUser, m.Role)
	require.NotEmpty(t, m.ID)
}

func TestTextIgnoresNonTextBlocks(t *testing.T) {
	blocks := []message.ContentBlock{
		message.TextBlock{Text: "a"},
		message.ThinkingBlock{Text: "hidden"},
		message.ToolUseBlock{CallID: "c1", ToolName: "add"},
		message.TextBlock{Text: "b"},
	}
	require.Equal(t, "ab", message.Text(blocks))
}

func TestToolUses(t *testing.T) {
	m := message.NewAssistant([]message.ContentBlock{
		message.TextBlock{Text: "calling tool"},
		message.ToolUseBlock{CallID: "c1", ToolName: "add"},
		message.ToolUseBlock{CallID: "c2", ToolName: "sub"},
	})
	uses := m.ToolUses()
	require.Len(t, uses, 2)
	require.Equal(t, "c1", uses[0].CallID)
	require.Equal(t, "c2", uses[1].CallID)
}

func TestNewID(t *testing.T) {
	m1 := message.NewUser("hi")
	m2 := message.NewUser("hi")
	require.NotEqual(t, m1.ID, m2.ID)
}

func TestWithID(t *testing.T) {
	m := message.NewUser("hi", message.WithID("fixed"))
	require.Equal(t, "fixed", m.ID)
}
