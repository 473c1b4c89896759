package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/agentscope-go/reactcore/engine"
	"github.com/agentscope-go/reactcore/hooks"
	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/reacterr"
	"github.com/agentscope-go/reactcore/session"
	"github.com/agentscope-go/reactcore/stream"
	"github.com/agentscope-go/reactcore/telemetry"
)

// Server wires a Registry of agents and an optional session.Store onto the
// Chat-Completions-compatible HTTP surface (§6.1).
type Server struct {
	registry *Registry
	sessions *sessionCache
	logger   telemetry.Logger
	sink     stream.Sink
}

// Options configures a Server.
type Options struct {
	Registry *Registry
	// Store persists session documents across requests. Nil disables
	// durable sessions: every session_id still round-trips through the
	// in-process sessionCache for the lifetime of the process, but nothing
	// is written to disk/Redis/Mongo.
	Store *session.Store
	Logger telemetry.Logger
	// Sink, when set, receives a best-effort copy of every lifecycle event
	// alongside the HTTP response's own stream (see stream.Sequence.Tee).
	Sink stream.Sink
}

// NewServer builds a Server. opts.Registry is required.
func NewServer(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, errors.New("httpapi: registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Server{
		registry: opts.Registry,
		sessions: newSessionCache(opts.Store),
		logger:   logger,
		sink:     opts.Sink,
	}, nil
}

// Routes mounts the Chat-Completions surface on a chi.Router, under both
// the unscoped path and an /agents/{agent} scoped path so a caller can pick
// its agent via the URL (the first entry in §6.1's resolution order).
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Post("/v1/chat/completions", s.handleChatCompletions(""))
	r.Post("/v1/agents/{agent}/chat/completions", s.handleChatCompletionsPath())
	r.Get("/healthz", s.handleHealth)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleChatCompletionsPath() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.handleChatCompletions(chi.URLParam(r, "agent"))(w, r)
	}
}

func (s *Server) handleChatCompletions(pathAgent string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: decode request body: %v", reacterr.ErrBadInput, err))
			return
		}

		spec, err := s.registry.resolve(r, pathAgent, req.Agent)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}

		input, err := decodeMessages(req.Messages)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		sessionID := req.SessionID
		ephemeral := sessionID == ""
		if ephemeral {
			sessionID = uuid.NewString()
		}

		entry, err := s.sessions.getOrCreate(r.Context(), spec, sessionID, spec.Config.SessionTTL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		responseID := "chatcmpl-" + uuid.NewString()
		created := time.Now().Unix()

		events := entry.engine.Stream(r.Context(), input)
		seq := stream.NewSequence(events, responseID, sessionID)
		out := seq
		var teed <-chan stream.Event
		if s.sink != nil {
			teed = seq.Tee(r.Context(), s.sink, func(err error) {
				s.logger.Warn(r.Context(), "stream sink publish failed", "error", err.Error())
			})
		}

		if req.Stream {
			s.streamResponse(w, r, responseID, created, req.Model, out, teed)
		} else {
			s.unaryResponse(w, r, responseID, created, req.Model, out, teed)
		}

		if !ephemeral {
			if err := s.sessions.persist(r.Context(), sessionID, entry); err != nil {
				s.logger.Error(r.Context(), "persist session failed", "session_id", sessionID, "error", err.Error())
			}
		}
	}
}

// drain walks either the tee'd channel (if a sink is configured) or the raw
// Sequence, returning every stream.Event in order. Both paths observe the
// same underlying hooks.Event sequence; only the channel differs.
func drain(ctx context.Context, seq *stream.Sequence, teed <-chan stream.Event) []stream.Event {
	var out []stream.Event
	if teed != nil {
		for evt := range teed {
			out = append(out, evt)
		}
		return out
	}
	for {
		evt, ok := seq.Next(ctx)
		if !ok {
			return out
		}
		out = append(out, evt)
	}
}

func (s *Server) unaryResponse(w http.ResponseWriter, r *http.Request, id string, created int64, model string, seq *stream.Sequence, teed <-chan stream.Event) {
	events := drain(r.Context(), seq, teed)

	terminal := message.Message{}
	reason := engine.FinishError
	for _, evt := range events {
		if pc, ok := evt.Inner().(hooks.PostCallEvent); ok {
			terminal = pc.Terminal
			reason = engine.FinishReason(pc.FinishReason)
		}
	}

	resp := chatResponse{
		ID:      id,
		Created: created,
		Model:   model,
		Choices: []chatChoice{{
			Index:        0,
			Message:      &chatRespMsg{Role: "assistant", Content: terminal.Text()},
			FinishReason: strPtr(encodeFinishReason(reason)),
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) streamResponse(w http.ResponseWriter, r *http.Request, id string, created int64, model string, seq *stream.Sequence, teed <-chan stream.Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("httpapi: streaming unsupported by response writer"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	write := func(frag chatResponse) {
		data, _ := json.Marshal(frag)
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	emit := func(evt stream.Event) {
		switch inner := evt.Inner().(type) {
		case hooks.ReasoningChunkEvent:
			if t, ok := inner.Block.(message.TextBlock); ok && t.Text != "" {
				write(chatResponse{ID: id, Created: created, Model: model, Choices: []chatChoice{{
					Index: 0,
					Delta: &chatRespDelta{Content: t.Text},
				}}})
			}
		case hooks.PostCallEvent:
			write(chatResponse{ID: id, Created: created, Model: model, Choices: []chatChoice{{
				Index:        0,
				Delta:        &chatRespDelta{},
				FinishReason: strPtr(encodeFinishReason(engine.FinishReason(inner.FinishReason))),
			}}})
		case hooks.ErrorPayload:
			write(chatResponse{ID: id, Created: created, Model: model, Choices: []chatChoice{{
				Index:        0,
				Delta:        &chatRespDelta{Content: inner.Err.Error()},
				FinishReason: strPtr("error"),
			}}})
		}
	}

	if teed != nil {
		for evt := range teed {
			emit(evt)
		}
	} else {
		for {
			evt, ok := seq.Next(r.Context())
			if !ok {
				break
			}
			emit(evt)
		}
	}

	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Message: err.Error(), Type: errorKind(err)}})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, reacterr.ErrBadInput), errors.Is(err, reacterr.ErrBadMessage):
		return "invalid_request_error"
	case errors.Is(err, reacterr.ErrSessionNotFound):
		return "not_found_error"
	default:
		return "server_error"
	}
}
