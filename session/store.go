package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentscope-go/reactcore/reacterr"
	"github.com/agentscope-go/reactcore/state"
)

// Store is the session-level API an Engine or HTTP adapter drives: it
// validates session ids, then delegates the aggregated document to a
// Backend. Store's Save/Load methods operate on a raw component-name-to-Dict
// map so a *Store satisfies engine.SessionBackend structurally without
// either package importing the other; SaveModules/LoadModules are the
// convenience wrappers most callers want.
type Store struct {
	backend Backend
}

// New builds a Store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Save serializes components into a single aggregated document and writes
// it atomically, overwriting any prior document for sessionID in place.
func (s *Store) Save(ctx context.Context, sessionID string, components map[string]state.Dict) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	return s.backend.Save(ctx, sessionID, Document(components))
}

// Load reads the aggregated document for sessionID. When allowMissing is
// true and no document exists, Load returns (nil, nil); otherwise a missing
// document is reported as reacterr.ErrSessionNotFound.
func (s *Store) Load(ctx context.Context, sessionID string, allowMissing bool) (map[string]state.Dict, error) {
	if err := ValidateID(sessionID); err != nil {
		return nil, err
	}
	doc, err := s.backend.Load(ctx, sessionID)
	if err != nil {
		if allowMissing && errors.Is(err, reacterr.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}

// SaveModules aggregates each module's StateDict() and saves the result.
func (s *Store) SaveModules(ctx context.Context, sessionID string, modules ...state.Module) error {
	doc, err := state.Aggregate(modules...)
	if err != nil {
		return fmt.Errorf("aggregate state: %w", err)
	}
	return s.Save(ctx, sessionID, doc)
}

// LoadModules loads the aggregated document and restores it into modules
// via LoadStateDict(..., strict=false), per §4.7. When allowMissing is true
// and no document exists, modules are left untouched.
func (s *Store) LoadModules(ctx context.Context, sessionID string, allowMissing bool, modules ...state.Module) error {
	doc, err := s.Load(ctx, sessionID, allowMissing)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	return state.Restore(doc, false, modules...)
}

// Exists reports whether a document is stored for sessionID.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	if err := ValidateID(sessionID); err != nil {
		return false, err
	}
	return s.backend.Exists(ctx, sessionID)
}

// List returns every stored session id, in backend-defined order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.backend.List(ctx)
}

// Delete removes the document stored for sessionID, if any.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	return s.backend.Delete(ctx, sessionID)
}

// Info reports size, component count, and last-modified time for sessionID.
func (s *Store) Info(ctx context.Context, sessionID string) (Info, error) {
	if err := ValidateID(sessionID); err != nil {
		return Info{}, err
	}
	return s.backend.Info(ctx, sessionID)
}
