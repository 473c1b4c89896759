package httpapi_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentscope-go/reactcore/engine"
	"github.com/agentscope-go/reactcore/httpapi"
	"github.com/agentscope-go/reactcore/modelport"
	"github.com/agentscope-go/reactcore/session"
	"github.com/agentscope-go/reactcore/session/backends/file"
	"github.com/agentscope-go/reactcore/toolkit"
)

// scriptedPort plays back one fragment slice per call to Stream, advancing
// through replies in order.
type scriptedPort struct {
	replies [][]modelport.Fragment
	calls   int
}

func (p *scriptedPort) Stream(ctx context.Context, _ modelport.Request) (<-chan modelport.Fragment, error) {
	idx := p.calls
	p.calls++
	frags := p.replies[idx]
	out := make(chan modelport.Fragment, len(frags))
	go func() {
		defer close(out)
		for _, f := range frags {
			out <- f
		}
	}()
	return out, nil
}

func textReply(s string) []modelport.Fragment {
	return []modelport.Fragment{
		{Kind: modelport.FragmentText, Text: s},
		{Kind: modelport.FragmentDone},
	}
}

func newSpec(t *testing.T, name string, port modelport.Port, tk *toolkit.Toolkit) httpapi.AgentSpec {
	t.Helper()
	if tk == nil {
		tk = toolkit.New(nil)
	}
	cfg := engine.DefaultConfig()
	cfg.MaxIters = 5
	return httpapi.AgentSpec{Name: name, Port: port, Toolkit: tk, Config: cfg}
}

func newTestServer(t *testing.T, specs ...httpapi.AgentSpec) *httptest.Server {
	t.Helper()
	reg := httpapi.NewRegistry(specs[0].Name)
	for _, s := range specs {
		reg.Register(s)
	}
	backend, err := file.New(t.TempDir())
	require.NoError(t, err)
	store := session.New(backend)
	srv, err := httpapi.NewServer(httpapi.Options{Registry: reg, Store: store})
	require.NoError(t, err)
	return httptest.NewServer(srv.Routes())
}

func TestUnaryPlainTextReply(t *testing.T) {
	spec := newSpec(t, "default", &scriptedPort{replies: [][]modelport.Fragment{textReply("hello")}}, nil)
	ts := newTestServer(t, spec)
	defer ts.Close()

	body := `{"model":"m","messages":[{"role":"user","content":"hi"}]}`
	resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded struct {
		Choices []struct {
			Message      struct{ Content string } `json:"message"`
			FinishReason string                    `json:"finish_reason"`
		} `json:"choices"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Len(t, decoded.Choices, 1)
	assert.Equal(t, "hello", decoded.Choices[0].Message.Content)
	assert.Equal(t, "stop", decoded.Choices[0].FinishReason)
}

func TestAgentResolutionPriority(t *testing.T) {
	pathSpec := newSpec(t, "path-agent", &scriptedPort{replies: [][]modelport.Fragment{textReply("from-path")}}, nil)
	headerSpec := newSpec(t, "header-agent", &scriptedPort{replies: [][]modelport.Fragment{textReply("from-header")}}, nil)
	bodySpec := newSpec(t, "body-agent", &scriptedPort{replies: [][]modelport.Fragment{textReply("from-body")}}, nil)
	fallbackSpec := newSpec(t, "fallback-agent", &scriptedPort{replies: [][]modelport.Fragment{textReply("from-fallback")}}, nil)
	ts := newTestServer(t, fallbackSpec, pathSpec, headerSpec, bodySpec)
	defer ts.Close()

	// Path wins over header and body.
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/agents/path-agent/chat/completions",
		strings.NewReader(`{"model":"m","messages":[{"role":"user","content":"hi"}],"agent":"body-agent"}`))
	req.Header.Set("X-Agent-Name", "header-agent")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, "from-path", mustContent(t, resp))

	// Header wins over body when no path agent is set.
	req2, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/chat/completions",
		strings.NewReader(`{"model":"m","messages":[{"role":"user","content":"hi"}],"agent":"body-agent"}`))
	req2.Header.Set("X-Agent-Name", "header-agent")
	resp2, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	assert.Equal(t, "from-header", mustContent(t, resp2))

	// Body wins over the registry fallback.
	resp3, err := http.Post(ts.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"model":"m","messages":[{"role":"user","content":"hi"}],"agent":"body-agent"}`))
	require.NoError(t, err)
	assert.Equal(t, "from-body", mustContent(t, resp3))

	// Falls back to the registry's configured default otherwise.
	resp4, err := http.Post(ts.URL+"/v1/chat/completions", "application/json",
		strings.NewReader(`{"model":"m","messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "from-fallback", mustContent(t, resp4))
}

func mustContent(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var decoded struct {
		Choices []struct {
			Message struct{ Content string } `json:"message"`
		} `json:"choices"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Len(t, decoded.Choices, 1)
	return decoded.Choices[0].Message.Content
}

func TestStreamingResponseEndsWithDoneSentinel(t *testing.T) {
	spec := newSpec(t, "default", &scriptedPort{replies: [][]modelport.Fragment{textReply("hi there")}}, nil)
	ts := newTestServer(t, spec)
	defer ts.Close()

	body := `{"model":"m","stream":true,"messages":[{"role":"user","content":"hi"}]}`
	resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			lines = append(lines, strings.TrimPrefix(line, "data: "))
		}
	}
	require.NotEmpty(t, lines)
	assert.Equal(t, "[DONE]", lines[len(lines)-1])

	var sawFinish bool
	for _, l := range lines[:len(lines)-1] {
		var frag struct {
			Choices []struct {
				FinishReason *string `json:"finish_reason"`
			} `json:"choices"`
		}
		require.NoError(t, json.Unmarshal([]byte(l), &frag))
		if len(frag.Choices) > 0 && frag.Choices[0].FinishReason != nil {
			sawFinish = true
			assert.Equal(t, "stop", *frag.Choices[0].FinishReason)
		}
	}
	assert.True(t, sawFinish, "expected one fragment carrying a finish_reason before [DONE]")
}

func TestToolSuspensionFinishReason(t *testing.T) {
	tk := toolkit.New(nil)
	require.NoError(t, tk.Register(context.Background(), toolkit.Registration{
		Name:        "ask_browser",
		Description: "suspends for human input",
		Parameters: []toolkit.Param{
			{Name: "query", Type: toolkit.ParamString, Required: true},
		},
	}))
	port := &scriptedPort{replies: [][]modelport.Fragment{
		{
			{Kind: modelport.FragmentToolCall, ToolCall: modelport.ToolCallDelta{CallID: "c1", ToolName: "ask_browser", ArgumentsDelta: "{}"}},
			{Kind: modelport.FragmentDone},
		},
	}}
	spec := newSpec(t, "default", port, tk)
	ts := newTestServer(t, spec)
	defer ts.Close()

	body := `{"model":"m","messages":[{"role":"user","content":"ask the browser"}]}`
	resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded struct {
		Choices []struct {
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.Len(t, decoded.Choices, 1)
	assert.Equal(t, "tool_suspended", decoded.Choices[0].FinishReason)
}

func TestSessionRoundTripsAcrossRequests(t *testing.T) {
	port := &scriptedPort{replies: [][]modelport.Fragment{
		textReply("first reply"),
		textReply("second reply"),
	}}
	spec := newSpec(t, "default", port, nil)
	ts := newTestServer(t, spec)
	defer ts.Close()

	const sid = "sess-xyz"
	body1 := `{"model":"m","session_id":"` + sid + `","messages":[{"role":"user","content":"hi"}]}`
	resp1, err := http.Post(ts.URL+"/v1/chat/completions", "application/json", strings.NewReader(body1))
	require.NoError(t, err)
	assert.Equal(t, "first reply", mustContent(t, resp1))

	body2 := `{"model":"m","session_id":"` + sid + `","messages":[{"role":"user","content":"again"}]}`
	resp2, err := http.Post(ts.URL+"/v1/chat/completions", "application/json", strings.NewReader(body2))
	require.NoError(t, err)
	assert.Equal(t, "second reply", mustContent(t, resp2))

	// Both calls shared one engine/memory, bound to the same session id:
	// the scripted port only has two replies queued, and both were
	// consumed in order, proving the second request reused the cached
	// engine rather than building a fresh one.
	assert.Equal(t, 2, port.calls)
}
