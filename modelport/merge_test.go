package modelport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentscope-go/reactcore/modelport"
)

func TestMergerConcatenatesTextInArrivalOrder(t *testing.T) {
	m := modelport.NewMerger()
	m.Add(modelport.Fragment{Kind: modelport.FragmentText, Text: "hel"})
	m.Add(modelport.Fragment{Kind: modelport.FragmentText, Text: "lo"})

	msg := m.Finish()
	assert.Equal(t, "hello", msg.Text())
}

func TestMergerMergesToolCallArgumentsByCallID(t *testing.T) {
	m := modelport.NewMerger()
	m.Add(modelport.Fragment{Kind: modelport.FragmentToolCall, ToolCall: modelport.ToolCallDelta{
		CallID: "c1", ToolName: "add", ArgumentsDelta: `{"a":1`,
	}})
	m.Add(modelport.Fragment{Kind: modelport.FragmentToolCall, ToolCall: modelport.ToolCallDelta{
		CallID: "c1", ArgumentsDelta: `,"b":2}`,
	}})

	msg := m.Finish()
	uses := msg.ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "c1", uses[0].CallID)
	assert.Equal(t, "add", uses[0].ToolName)
	assert.JSONEq(t, `{"a":1,"b":2}`, string(uses[0].Arguments))
}

func TestMergerKeepsDistinctCallsInArrivalOrder(t *testing.T) {
	m := modelport.NewMerger()
	m.Add(modelport.Fragment{Kind: modelport.FragmentToolCall, ToolCall: modelport.ToolCallDelta{
		CallID: "c2", ToolName: "get_weather", ArgumentsDelta: `{"city":"SH"}`,
	}})
	m.Add(modelport.Fragment{Kind: modelport.FragmentToolCall, ToolCall: modelport.ToolCallDelta{
		CallID: "c1", ToolName: "get_weather", ArgumentsDelta: `{"city":"BJ"}`,
	}})

	msg := m.Finish()
	uses := msg.ToolUses()
	require.Len(t, uses, 2)
	assert.Equal(t, "c2", uses[0].CallID)
	assert.Equal(t, "c1", uses[1].CallID)
}

func TestMergerMalformedArgumentsPreservedAsRawText(t *testing.T) {
	m := modelport.NewMerger()
	m.Add(modelport.Fragment{Kind: modelport.FragmentToolCall, ToolCall: modelport.ToolCallDelta{
		CallID: "c1", ToolName: "add", ArgumentsDelta: `{a:17,`,
	}})

	msg := m.Finish()
	uses := msg.ToolUses()
	require.Len(t, uses, 1)
	assert.True(t, len(uses[0].Arguments) > 0)
}

func TestMergerUsageTracksLastFragment(t *testing.T) {
	m := modelport.NewMerger()
	m.Add(modelport.Fragment{Kind: modelport.FragmentUsage, Usage: modelport.Usage{InputTokens: 10, OutputTokens: 5}})
	assert.Equal(t, modelport.Usage{InputTokens: 10, OutputTokens: 5}, m.Usage())
}
