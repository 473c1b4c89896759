package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentscope-go/reactcore/engine"
	"github.com/agentscope-go/reactcore/hooks"
	"github.com/agentscope-go/reactcore/memory"
	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/modelport"
	"github.com/agentscope-go/reactcore/session"
	"github.com/agentscope-go/reactcore/session/backends/file"
	"github.com/agentscope-go/reactcore/toolkit"
)

// TestSessionSaveLoadRoundTrip runs one call under a session id, saves the
// resulting memory to a session store, then binds a brand-new Engine
// (simulating a fresh process) to a Memory loaded back from that store. The
// second engine's next call must see the full prior exchange.
func TestSessionSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, err := file.New(t.TempDir())
	require.NoError(t, err)
	store := session.New(backend)
	const sessionID = "alice"

	port1 := &scriptedPort{replies: [][]modelport.Fragment{
		toolCallReply("call-1", "add", `{"a":1,"b":2}`),
		textReply("the sum is 42"),
	}}
	tk1 := toolkit.New(nil)
	require.NoError(t, tk1.Register(ctx, addTool()))
	mem1 := memory.New("memory")
	pipeline1 := hooks.New(time.Second, nil, nil)
	cfg := engine.DefaultConfig()
	cfg.MaxIters = 5
	e1, err := engine.New(port1, tk1, mem1, pipeline1, cfg)
	require.NoError(t, err)

	result := e1.Run(ctx, []message.Message{message.NewUser("what is 1+2?")})
	require.Equal(t, engine.FinishStop, result.FinishReason)

	require.NoError(t, store.SaveModules(ctx, sessionID, mem1))

	// Simulate a fresh process: a new Memory bound to the same session id.
	mem2 := memory.New("memory")
	require.NoError(t, store.LoadModules(ctx, sessionID, false, mem2))

	assert.Equal(t, mem1.Snapshot(), mem2.Snapshot())
	assert.Len(t, mem2.Snapshot(), 4, "user, assistant-with-ToolUse, tool-with-ToolResult, assistant terminal")

	port2 := &scriptedPort{replies: [][]modelport.Fragment{textReply("as I said, 42")}}
	pipeline2 := hooks.New(time.Second, nil, nil)
	tk2 := toolkit.New(nil)
	require.NoError(t, tk2.Register(ctx, addTool()))
	e2, err := engine.New(port2, tk2, mem2, pipeline2, cfg)
	require.NoError(t, err)

	result2 := e2.Run(ctx, []message.Message{message.NewUser("what did you just say?")})
	assert.Equal(t, engine.FinishStop, result2.FinishReason)
	assert.Equal(t, "as I said, 42", result2.Message.Text())
	assert.Len(t, mem2.Snapshot(), 6, "prior four messages plus this turn's user+assistant")
}
