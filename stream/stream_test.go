package stream_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentscope-go/reactcore/hooks"
	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/stream"
)

func TestSequence_NextMirrorsChannelOrderAndCloses(t *testing.T) {
	ch := make(chan hooks.Event, 2)
	ch <- hooks.NewPreCall("call-1", nil)
	ch <- hooks.NewPostCall("call-1", message.NewAssistant([]message.ContentBlock{message.TextBlock{Text: "hi"}}), "stop")
	close(ch)

	seq := stream.NewSequence(ch, "call-1", "sess-1")
	ctx := context.Background()

	evt, ok := seq.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, stream.EventPreCall, evt.Type())
	assert.Equal(t, "call-1", evt.RunID())
	assert.Equal(t, "sess-1", evt.SessionID())

	evt, ok = seq.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, stream.EventPostCall, evt.Type())

	_, ok = seq.Next(ctx)
	assert.False(t, ok, "exhausted sequence must report done")
}

func TestSequence_NextRespectsContextCancellation(t *testing.T) {
	ch := make(chan hooks.Event)
	seq := stream.NewSequence(ch, "call-1", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := seq.Next(ctx)
	assert.False(t, ok)
}

func TestEvent_MarshalJSONEnvelope(t *testing.T) {
	ch := make(chan hooks.Event, 1)
	ch <- hooks.NewError("call-1", hooks.PhaseActing, errors.New("boom"))
	close(ch)

	seq := stream.NewSequence(ch, "call-1", "sess-9")
	evt, ok := seq.Next(context.Background())
	require.True(t, ok)

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var decoded struct {
		Type      string `json:"type"`
		RunID     string `json:"run_id"`
		SessionID string `json:"session_id"`
		Payload   struct {
			Phase string `json:"phase"`
			Error string `json:"error"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "error", decoded.Type)
	assert.Equal(t, "call-1", decoded.RunID)
	assert.Equal(t, "sess-9", decoded.SessionID)
	assert.Equal(t, "acting", decoded.Payload.Phase)
	assert.Equal(t, "boom", decoded.Payload.Error)
}

// fakeSink records every event handed to it and can be made to fail on a
// chosen event type, mimicking a broadcast transport that drops a publish
// without the call itself noticing.
type fakeSink struct {
	failOn stream.EventType
	sent   []stream.Event
	closed bool
}

func (f *fakeSink) Send(_ context.Context, evt stream.Event) error {
	if f.failOn != "" && evt.Type() == f.failOn {
		return errors.New("sink unavailable")
	}
	f.sent = append(f.sent, evt)
	return nil
}

func (f *fakeSink) Close(context.Context) error {
	f.closed = true
	return nil
}

func TestSequence_TeeFansOutToSinkAndPullConsumer(t *testing.T) {
	ch := make(chan hooks.Event, 3)
	ch <- hooks.NewPreCall("call-1", nil)
	ch <- hooks.NewReasoningChunk("call-1", 0, message.TextBlock{Text: "hi"})
	ch <- hooks.NewPostCall("call-1", message.NewAssistant([]message.ContentBlock{message.TextBlock{Text: "hi"}}), "stop")
	close(ch)

	seq := stream.NewSequence(ch, "call-1", "sess-1")
	sink := &fakeSink{}

	var sinkErrs []error
	out := seq.Tee(context.Background(), sink, func(err error) { sinkErrs = append(sinkErrs, err) })

	var pulled []stream.Event
	for evt := range out {
		pulled = append(pulled, evt)
	}

	assert.Len(t, pulled, 3)
	assert.Len(t, sink.sent, 3)
	assert.Empty(t, sinkErrs)
}

func TestSequence_TeeSinkErrorDoesNotInterruptPullConsumer(t *testing.T) {
	ch := make(chan hooks.Event, 2)
	ch <- hooks.NewPreCall("call-1", nil)
	ch <- hooks.NewPostCall("call-1", message.NewAssistant([]message.ContentBlock{message.TextBlock{Text: "hi"}}), "stop")
	close(ch)

	seq := stream.NewSequence(ch, "call-1", "")
	sink := &fakeSink{failOn: stream.EventPreCall}

	var sinkErrs []error
	out := seq.Tee(context.Background(), sink, func(err error) { sinkErrs = append(sinkErrs, err) })

	var pulled []stream.Event
	for evt := range out {
		pulled = append(pulled, evt)
	}

	assert.Len(t, pulled, 2, "a sink failure must not drop events from the pull-based consumer")
	assert.Len(t, sinkErrs, 1)
	assert.Len(t, sink.sent, 1, "only the non-failing event reaches the sink")
}

func TestSequence_TeeStopsOnContextCancellation(t *testing.T) {
	ch := make(chan hooks.Event)
	seq := stream.NewSequence(ch, "call-1", "")

	ctx, cancel := context.WithCancel(context.Background())
	out := seq.Tee(ctx, nil, nil)
	cancel()

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Tee did not close its output channel after context cancellation")
	}
}
