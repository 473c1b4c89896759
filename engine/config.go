package engine

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// FinishReason enumerates why a call's loop stopped.
type FinishReason string

const (
	FinishStop           FinishReason = "stop"
	FinishError          FinishReason = "error"
	FinishToolSuspended  FinishReason = "tool_suspended"
	FinishMaxIters       FinishReason = "max_iters"
)

// Config holds the options recognized by an Engine (§6.3). Handles to the
// model port, toolkit, memory, hook pipeline, and session backend are Go
// construction arguments rather than YAML fields; Config carries only the
// plain values an operator might reasonably template into a deployment
// manifest.
type Config struct {
	MaxIters             int           `yaml:"maxIters"`
	AgentCallTimeout     time.Duration `yaml:"agentCallTimeout"`
	ToolExecutionTimeout time.Duration `yaml:"toolExecutionTimeout"`
	HookBudget           time.Duration `yaml:"hookBudget"`
	StreamBufferSize     int           `yaml:"streamBufferSize"`
	SystemPrompt         string        `yaml:"systemPrompt"`
	SessionTTL           time.Duration `yaml:"sessionTtl"`
}

// DefaultConfig returns a Config with conservative defaults: ten reasoning
// steps, a five-minute call budget, a thirty-second per-tool budget, a
// two-second hook budget, and a 64-fragment stream buffer.
func DefaultConfig() Config {
	return Config{
		MaxIters:             10,
		AgentCallTimeout:     5 * time.Minute,
		ToolExecutionTimeout: 30 * time.Second,
		HookBudget:           2 * time.Second,
		StreamBufferSize:     64,
	}
}

// Option customizes a Config after it has been loaded from YAML or built
// from DefaultConfig.
type Option func(*Config)

func WithMaxIters(n int) Option {
	return func(c *Config) { c.MaxIters = n }
}

func WithAgentCallTimeout(d time.Duration) Option {
	return func(c *Config) { c.AgentCallTimeout = d }
}

func WithToolExecutionTimeout(d time.Duration) Option {
	return func(c *Config) { c.ToolExecutionTimeout = d }
}

func WithHookBudget(d time.Duration) Option {
	return func(c *Config) { c.HookBudget = d }
}

func WithStreamBufferSize(n int) Option {
	return func(c *Config) { c.StreamBufferSize = n }
}

func WithSystemPrompt(prompt string) Option {
	return func(c *Config) { c.SystemPrompt = prompt }
}

func WithSessionTTL(d time.Duration) Option {
	return func(c *Config) { c.SessionTTL = d }
}

// LoadConfig reads a YAML document into a Config seeded with
// DefaultConfig, then applies opts on top of the decoded values.
func LoadConfig(r io.Reader, opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, err
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg, nil
}

// validate reports the first malformed field, per §6.3's MaxIters>0 and
// StreamBufferSize>0 requirements. Timeouts and budgets of zero are
// legal — they disable the corresponding guard.
func (c Config) validate() error {
	if c.MaxIters <= 0 {
		return errConfigMaxIters
	}
	if c.StreamBufferSize <= 0 {
		return errConfigStreamBuffer
	}
	return nil
}
