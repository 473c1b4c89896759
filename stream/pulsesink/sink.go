// Package pulsesink implements stream.Sink on top of goa.design/pulse
// streams: every event is published as one entry on a per-session Pulse
// stream backed by Redis, so any number of server-side subscribers (a
// second replica, an audit drain) can fan the same call out without
// competing with the HTTP response's own pull-based Sequence.
package pulsesink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"

	"github.com/agentscope-go/reactcore/stream"
)

// Options configures the Pulse-backed sink.
type Options struct {
	// Redis is the connection backing every Pulse stream. Required.
	Redis *redis.Client
	// StreamID derives the target Pulse stream name from an event. Defaults
	// to "session/<SessionID>", falling back to "run/<RunID>" for
	// sessionless calls.
	StreamID func(stream.Event) (string, error)
	// StreamMaxLen bounds the number of entries kept per stream. Zero uses
	// Pulse's own default.
	StreamMaxLen int
	// OperationTimeout bounds each Add call. Zero means no timeout.
	OperationTimeout time.Duration
}

// Sink publishes stream.Event values onto Pulse streams, one Redis Stream
// per session (or per run, for sessionless calls). It opens streams lazily
// and caches the handle for the lifetime of the Sink.
type Sink struct {
	redis    *redis.Client
	maxLen   int
	timeout  time.Duration
	streamID func(stream.Event) (string, error)

	mu      sync.Mutex // guards streams
	streams map[string]*streaming.Stream
}

// New constructs a Sink. opts.Redis is required.
func New(opts Options) (*Sink, error) {
	if opts.Redis == nil {
		return nil, errors.New("pulsesink: redis client is required")
	}
	streamID := opts.StreamID
	if streamID == nil {
		streamID = defaultStreamID
	}
	return &Sink{
		redis:    opts.Redis,
		maxLen:   opts.StreamMaxLen,
		timeout:  opts.OperationTimeout,
		streamID: streamID,
		streams:  make(map[string]*streaming.Stream),
	}, nil
}

// Send implements stream.Sink.
func (s *Sink) Send(ctx context.Context, event stream.Event) error {
	name, err := s.streamID(event)
	if err != nil {
		return fmt.Errorf("pulsesink: derive stream id: %w", err)
	}
	str, err := s.openStream(name)
	if err != nil {
		return fmt.Errorf("pulsesink: open stream %s: %w", name, err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("pulsesink: encode event: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := str.Add(ctx, string(event.Type()), payload); err != nil {
		return fmt.Errorf("pulsesink: publish to %s: %w", name, err)
	}
	return nil
}

// Close implements stream.Sink. The underlying Redis connection is owned by
// the caller and is not closed here.
func (s *Sink) Close(context.Context) error { return nil }

func (s *Sink) openStream(name string) (*streaming.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if str, ok := s.streams[name]; ok {
		return str, nil
	}
	var opts []streamopts.Stream
	if s.maxLen > 0 {
		opts = append(opts, streamopts.WithStreamMaxLen(s.maxLen))
	}
	str, err := streaming.NewStream(name, s.redis, opts...)
	if err != nil {
		return nil, err
	}
	s.streams[name] = str
	return str, nil
}

func defaultStreamID(event stream.Event) (string, error) {
	if event.SessionID() != "" {
		return fmt.Sprintf("session/%s", event.SessionID()), nil
	}
	if event.RunID() != "" {
		return fmt.Sprintf("run/%s", event.RunID()), nil
	}
	return "", errors.New("stream event carries neither session id nor run id")
}
