package engine

import (
	"context"

	"github.com/agentscope-go/reactcore/state"
)

// SessionBackend is the minimal contract an Engine needs from durable
// session storage: aggregate component state dicts in, aggregate component
// state dicts out. It is declared locally (rather than imported from a
// session package) so engine and session stay decoupled; any concrete
// session.Store satisfies it structurally.
type SessionBackend interface {
	Save(ctx context.Context, sessionID string, components map[string]state.Dict) error
	Load(ctx context.Context, sessionID string, allowMissing bool) (map[string]state.Dict, error)
}
