package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/agentscope-go/reactcore/engine"
	"github.com/agentscope-go/reactcore/memory"
	"github.com/agentscope-go/reactcore/session"
)

// sessionEntry pairs a durable Engine/Memory with the agent it was built
// from and the time it must be evicted, per §6.1: "the engine is discarded
// when its TTL expires."
type sessionEntry struct {
	agent     string
	engine    *engine.Engine
	memory    *memory.Memory
	expiresAt time.Time
}

// sessionCache holds one live Engine per (agent, session) pair, loading its
// Memory from the configured session.Store on first use and discarding it
// lazily once its TTL has passed. This mirrors the teacher's MemoryCache
// (runtime/registry/cache.go) simplified to lazy-expiry only: a background
// refresh loop has no analogue here since a session engine is either live
// or it isn't.
type sessionCache struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	store   *session.Store
}

func newSessionCache(store *session.Store) *sessionCache {
	return &sessionCache{entries: make(map[string]*sessionEntry), store: store}
}

func sessionKey(agent, sessionID string) string { return agent + "\x00" + sessionID }

// getOrCreate returns the live engine for (spec.Name, sessionID), loading
// its Memory from the session store on first use (allowMissing=true: a
// never-seen id starts from an empty Memory). Every access re-stamps the
// entry's expiry to now+ttl, or now+30 minutes when ttl is zero.
func (c *sessionCache) getOrCreate(ctx context.Context, spec AgentSpec, sessionID string, ttl time.Duration) (*sessionEntry, error) {
	key := sessionKey(spec.Name, sessionID)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && time.Now().Before(e.expiresAt) {
		e.expiresAt = nextExpiry(ttl)
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()

	mem := memory.New("memory")
	if c.store != nil {
		if err := c.store.LoadModules(ctx, sessionID, true, mem); err != nil {
			return nil, err
		}
	}
	eng, err := spec.newEngine(mem)
	if err != nil {
		return nil, err
	}

	entry := &sessionEntry{agent: spec.Name, engine: eng, memory: mem, expiresAt: nextExpiry(ttl)}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return entry, nil
}

// persist saves the entry's current Memory back to the session store,
// per §6.1: "after the response, the session backend is updated."
func (c *sessionCache) persist(ctx context.Context, sessionID string, entry *sessionEntry) error {
	if c.store == nil {
		return nil
	}
	return c.store.SaveModules(ctx, sessionID, entry.memory)
}

func nextExpiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return time.Now().Add(ttl)
}

// sweep evicts every entry whose TTL has passed. Callers that want bounded
// idle memory run this periodically; it is never required for correctness
// since getOrCreate already re-checks expiry on access.
func (c *sessionCache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
