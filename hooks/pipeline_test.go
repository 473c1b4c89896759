package hooks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentscope-go/reactcore/hooks"
	"github.com/agentscope-go/reactcore/message"
)

func TestDispatchRunsInPriorityOrder(t *testing.T) {
	p := hooks.New(0, nil, nil)
	var order []string

	p.Register(hooks.NewFuncHook(200, func(ctx context.Context, evt hooks.Event) (hooks.Event, error) {
		order = append(order, "late")
		return evt, nil
	}))
	p.Register(hooks.NewFuncHook(50, func(ctx context.Context, evt hooks.Event) (hooks.Event, error) {
		order = append(order, "early")
		return evt, nil
	}))
	p.Register(hooks.NewFuncHook(hooks.DefaultPriority, func(ctx context.Context, evt hooks.Event) (hooks.Event, error) {
		order = append(order, "default")
		return evt, nil
	}))

	evt := hooks.NewPreCall("call-1", nil)
	_, err := p.Dispatch(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "default", "late"}, order)
}

func TestDispatchModifiableEventCarriesReplacement(t *testing.T) {
	p := hooks.New(0, nil, nil)
	p.Register(hooks.NewFuncHook(10, func(ctx context.Context, evt hooks.Event) (hooks.Event, error) {
		e := evt.(hooks.PostReasoningEvent)
		e.Candidate = message.NewAssistant([]message.ContentBlock{message.TextBlock{Text: "replaced"}})
		return e, nil
	}))

	evt := hooks.NewPostReasoning("call-1", 0, message.NewAssistant([]message.ContentBlock{message.TextBlock{Text: "original"}}))
	out, err := p.Dispatch(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, "replaced", out.(hooks.PostReasoningEvent).Candidate.Text())
}

func TestDispatchNotificationEventDiscardsReplacement(t *testing.T) {
	p := hooks.New(0, nil, nil)
	p.Register(hooks.NewFuncHook(10, func(ctx context.Context, evt hooks.Event) (hooks.Event, error) {
		return hooks.NewPreCall("different", nil), nil
	}))

	evt := hooks.NewPreCall("call-1", nil)
	out, err := p.Dispatch(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, "call-1", out.CallID())
}

func TestDispatchHookErrorWraps(t *testing.T) {
	p := hooks.New(0, nil, nil)
	boom := errors.New("boom")
	p.Register(hooks.NewFuncHook(10, func(ctx context.Context, evt hooks.Event) (hooks.Event, error) {
		return nil, boom
	}))

	_, err := p.Dispatch(context.Background(), hooks.NewPreCall("call-1", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestDispatchRespectsBudget(t *testing.T) {
	p := hooks.New(20*time.Millisecond, nil, nil)
	p.Register(hooks.NewFuncHook(10, func(ctx context.Context, evt hooks.Event) (hooks.Event, error) {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return evt, nil
	}))

	start := time.Now()
	_, err := p.Dispatch(context.Background(), hooks.NewPreCall("call-1", nil))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSubscriptionCloseRemovesHook(t *testing.T) {
	p := hooks.New(0, nil, nil)
	called := false
	sub := p.Register(hooks.NewFuncHook(10, func(ctx context.Context, evt hooks.Event) (hooks.Event, error) {
		called = true
		return evt, nil
	}))
	sub.Close()
	sub.Close() // idempotent

	_, err := p.Dispatch(context.Background(), hooks.NewPreCall("call-1", nil))
	require.NoError(t, err)
	assert.False(t, called)
}
