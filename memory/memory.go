// Package memory implements the ordered, append-only message log scoped to
// one agent instance (spec §4.2). A Memory is owned exclusively by its
// Engine for the lifetime of a call; external callers may still clear or
// splice it, but must hold its lock while doing so.
package memory

import (
	"encoding/json"
	"sync"

	"github.com/agentscope-go/reactcore/message"
	"github.com/agentscope-go/reactcore/state"
)

// Memory is an ordered, append-only (from the engine's perspective) log of
// messages. snapshot() returns a consistent point-in-time view; concurrent
// Append calls never interleave message fields, and iteration order always
// equals insertion order.
type Memory struct {
	mu       sync.RWMutex
	name     string
	messages []message.Message
}

// New constructs an empty Memory. name is the component name used when the
// Memory participates in session save/load as a state.Module; it defaults
// to "memory" when empty.
func New(name string) *Memory {
	if name == "" {
		name = "memory"
	}
	return &Memory{name: name}
}

// Append adds msg to the end of the log.
func (m *Memory) Append(msg message.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

// AppendAll adds msgs to the end of the log, in order, under a single lock
// acquisition so a concurrent Snapshot never observes a partial batch.
func (m *Memory) AppendAll(msgs ...message.Message) {
	if len(msgs) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msgs...)
}

// Snapshot returns a consistent, independent copy of the log in insertion
// order. Mutating the returned slice does not affect the Memory.
func (m *Memory) Snapshot() []message.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]message.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Clear empties the log.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// Size returns the number of messages currently in the log.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// ComponentName implements state.Module.
func (m *Memory) ComponentName() string { return m.name }

// StateDict implements state.Module. It serializes the full ordered
// message list under the "messages" key.
func (m *Memory) StateDict() (state.Dict, error) {
	snap := m.Snapshot()
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	var asAny []any
	if err := json.Unmarshal(raw, &asAny); err != nil {
		return nil, err
	}
	return state.Dict{"messages": asAny}, nil
}

// LoadStateDict implements state.Module. It replaces the log wholesale with
// the decoded "messages" value. When strict is true, any key besides
// "messages" is an error.
func (m *Memory) LoadStateDict(v state.Dict, strict bool) error {
	if strict {
		if unknown := state.UnknownKeys(v, map[string]struct{}{"messages": {}}); len(unknown) > 0 {
			return &state.UnknownKeysError{Component: m.name, Keys: unknown}
		}
	}
	raw, ok := v["messages"]
	if !ok {
		m.mu.Lock()
		m.messages = nil
		m.mu.Unlock()
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var msgs []message.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return err
	}
	m.mu.Lock()
	m.messages = msgs
	m.mu.Unlock()
	return nil
}
