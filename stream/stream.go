// Package stream adapts the engine's internal hook-event channel into the
// client-facing event abstractions used by httpapi and any distributed
// sink: a lazy, pull-based Sequence for a single caller's SSE/unary
// response, and a push-based Sink for fanning the same events out to a
// broadcast transport (see stream/pulsesink).
package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agentscope-go/reactcore/hooks"
)

// EventType mirrors a hooks.Kind as a wire-stable string.
type EventType string

const (
	EventPreCall        EventType = "pre_call"
	EventPreReasoning   EventType = "pre_reasoning"
	EventReasoningChunk EventType = "reasoning_chunk"
	EventPostReasoning  EventType = "post_reasoning"
	EventPreActing      EventType = "pre_acting"
	EventActingChunk    EventType = "acting_chunk"
	EventPostActing     EventType = "post_acting"
	EventPostCall       EventType = "post_call"
	EventError          EventType = "error"
)

// Event is a client-facing, transport-agnostic view of one lifecycle event:
// the hooks.Event it wraps, plus identity fields no single hooks.Event
// carries on its own (the engine has no notion of session or run).
type Event struct {
	inner     hooks.Event
	runID     string
	sessionID string
	at        time.Time
}

// wrap stamps a raw hooks.Event with the run/session identity of the call
// it belongs to and the time it was observed.
func wrap(evt hooks.Event, runID, sessionID string) Event {
	return Event{inner: evt, runID: runID, sessionID: sessionID, at: time.Now().UTC()}
}

// Type returns the event's wire-stable discriminator.
func (e Event) Type() EventType { return EventType(e.inner.Kind()) }

// RunID returns the call id the event belongs to.
func (e Event) RunID() string { return e.runID }

// SessionID returns the logical session id the run is bound to, empty for
// sessionless calls.
func (e Event) SessionID() string { return e.sessionID }

// Time reports when the event was observed by the adapter.
func (e Event) Time() time.Time { return e.at }

// Inner returns the underlying hooks.Event for callers that need typed
// field access (httpapi's SSE encoder switches on its concrete type).
func (e Event) Inner() hooks.Event { return e.inner }

// Payload returns a JSON-marshalable view of the event's fields, suitable
// for a sink that only needs wire bytes and does not care about the
// concrete hooks.Event type. Errors are flattened to their message string
// since the error interface itself carries no exported fields.
func (e Event) Payload() any {
	if ep, ok := e.inner.(hooks.ErrorPayload); ok {
		msg := ""
		if ep.Err != nil {
			msg = ep.Err.Error()
		}
		return struct {
			Phase hooks.Phase `json:"phase"`
			Error string      `json:"error"`
		}{Phase: ep.Phase, Error: msg}
	}
	return e.inner
}

// MarshalJSON renders the event as its wire envelope: type, identity, and
// payload. httpapi's SSE writer calls this directly for each event it
// forwards to a client.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      EventType `json:"type"`
		RunID     string    `json:"run_id"`
		SessionID string    `json:"session_id,omitempty"`
		Timestamp time.Time `json:"timestamp"`
		Payload   any       `json:"payload,omitempty"`
	}{
		Type:      e.Type(),
		RunID:     e.RunID(),
		SessionID: e.SessionID(),
		Timestamp: e.at,
		Payload:   e.Payload(),
	})
}

// Sink delivers events to a transport (SSE, WebSocket, Pulse). Implementations
// must be safe for concurrent Send calls: a Sequence may be fanned out to a
// sink from a goroutine separate from its own pull-based consumer.
type Sink interface {
	// Send publishes one event. An error is reported for that event only
	// (Tee hands it to onSinkErr and keeps sending later events to the
	// sink); it does not affect the call itself or any other sink.
	Send(ctx context.Context, event Event) error
	// Close releases resources owned by the sink. Idempotent.
	Close(ctx context.Context) error
}

// Sequence is a lazy, pull-based view over one call's event stream: callers
// call Next until it reports done, exactly mirroring the underlying
// hooks.Event order with no buffering beyond the engine's own bounded
// channel.
type Sequence struct {
	events <-chan hooks.Event
	runID  string
	sessID string
}

// NewSequence wraps the channel returned by engine.Engine.Stream.
func NewSequence(events <-chan hooks.Event, runID, sessionID string) *Sequence {
	return &Sequence{events: events, runID: runID, sessID: sessionID}
}

// Next blocks until the next event is available, ctx is done, or the
// underlying channel is closed (ok=false signals the call has finished).
func (s *Sequence) Next(ctx context.Context) (Event, bool) {
	select {
	case evt, more := <-s.events:
		if !more {
			return Event{}, false
		}
		return wrap(evt, s.runID, s.sessID), true
	case <-ctx.Done():
		return Event{}, false
	}
}

// Tee drains the sequence to completion, forwarding a copy of every event
// to sink (best-effort: a Send error is logged by the caller's choice of
// onSinkErr and does not interrupt delivery to out) while still yielding
// every event on the returned channel for a pull-based caller (e.g. the
// HTTP SSE writer). The returned channel is closed once the sequence is
// exhausted.
func (s *Sequence) Tee(ctx context.Context, sink Sink, onSinkErr func(error)) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			evt, ok := s.Next(ctx)
			if !ok {
				return
			}
			if sink != nil {
				if err := sink.Send(ctx, evt); err != nil && onSinkErr != nil {
					onSinkErr(err)
				}
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
