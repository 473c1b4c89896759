// Package httpapi exposes the engine through a Chat-Completions-compatible
// HTTP surface: POST /v1/chat/completions accepts the OpenAI request shape
// and returns either a unary JSON response or a text/event-stream of
// incremental fragments, per §6.1.
package httpapi

import (
	"net/http"
	"strings"
	"sync"

	"github.com/agentscope-go/reactcore/engine"
	"github.com/agentscope-go/reactcore/hooks"
	"github.com/agentscope-go/reactcore/memory"
	"github.com/agentscope-go/reactcore/modelport"
	"github.com/agentscope-go/reactcore/reacterr"
	"github.com/agentscope-go/reactcore/telemetry"
	"github.com/agentscope-go/reactcore/toolkit"
)

// DefaultAgentName is the literal string used when no other resolution
// source names an agent.
const DefaultAgentName = "default"

// AgentSpec is the fixed, shared configuration backing one named agent: its
// model port, toolkit, hook pipeline, and engine config. A Server builds a
// fresh *engine.Engine from an AgentSpec for every sessionless call, and one
// long-lived Engine per session id for durable calls (§6.1's session
// resolution paragraph).
type AgentSpec struct {
	Name     string
	Port     modelport.Port
	Toolkit  *toolkit.Toolkit
	Config   engine.Config
	Logger   telemetry.Logger
	Metrics  telemetry.Metrics
	Tracer   telemetry.Tracer
	HookSeed func() *hooks.Pipeline
}

// newEngine builds a fresh Engine bound to this spec and the given Memory,
// mirroring the construction path used directly in tests (port, toolkit,
// memory, pipeline, config).
func (s AgentSpec) newEngine(mem *memory.Memory) (*engine.Engine, error) {
	var p *hooks.Pipeline
	if s.HookSeed != nil {
		p = s.HookSeed()
	} else {
		p = hooks.New(s.Config.HookBudget, s.Logger, s.Metrics)
	}
	var opts []engine.EngineOption
	if s.Logger != nil {
		opts = append(opts, engine.WithLogger(s.Logger))
	}
	if s.Metrics != nil {
		opts = append(opts, engine.WithMetrics(s.Metrics))
	}
	if s.Tracer != nil {
		opts = append(opts, engine.WithTracer(s.Tracer))
	}
	return engine.New(s.Port, s.Toolkit, mem, p, s.Config, opts...)
}

// Registry resolves an agent name to its AgentSpec. Register swaps in a
// fresh copy of the map under the mutex; Lookup reads it under the same
// mutex.
type Registry struct {
	mu      sync.Mutex
	specs   map[string]AgentSpec
	fallback string
}

// NewRegistry builds an empty Registry. fallback names the agent used when
// resolution finds nothing more specific; it defaults to DefaultAgentName
// when empty.
func NewRegistry(fallback string) *Registry {
	if fallback == "" {
		fallback = DefaultAgentName
	}
	return &Registry{specs: make(map[string]AgentSpec), fallback: fallback}
}

// Register adds or replaces the named agent's spec.
func (r *Registry) Register(spec AgentSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[string]AgentSpec, len(r.specs)+1)
	for k, v := range r.specs {
		next[k] = v
	}
	next[spec.Name] = spec
	r.specs = next
}

// Lookup returns the named agent's spec.
func (r *Registry) Lookup(name string) (AgentSpec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// resolveAgentName returns the first non-empty of the URL path parameter,
// the X-Agent-Name header, and the body-embedded property, in that order.
// It returns "" when none is set; resolve then applies the registry's
// configured fallback and the literal "default".
func resolveAgentName(req *http.Request, pathAgent, bodyAgent string) string {
	if pathAgent != "" {
		return pathAgent
	}
	if h := strings.TrimSpace(req.Header.Get("X-Agent-Name")); h != "" {
		return h
	}
	if bodyAgent != "" {
		return bodyAgent
	}
	return ""
}

// resolve finds the agent named by the request, falling back through the
// registry's configured default and finally the literal "default".
func (r *Registry) resolve(req *http.Request, pathAgent, bodyAgent string) (AgentSpec, error) {
	name := resolveAgentName(req, pathAgent, bodyAgent)
	if name != "" {
		if spec, ok := r.Lookup(name); ok {
			return spec, nil
		}
	}
	if spec, ok := r.Lookup(r.fallback); ok {
		return spec, nil
	}
	if spec, ok := r.Lookup(DefaultAgentName); ok {
		return spec, nil
	}
	return AgentSpec{}, reacterr.ErrBadInput
}
