// Package file implements session.Backend as one JSON document per
// session, stored at <root>/<session_id>.json (§6.2). Writes are atomic:
// the document is written to a temp file in the same directory, then
// renamed into place, so a reader never observes a partially written
// document.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agentscope-go/reactcore/reacterr"
	"github.com/agentscope-go/reactcore/session"
)

// Store is a directory-backed session.Backend. It serializes writes with a
// mutex; the underlying filesystem already serializes renames, but the
// mutex also protects List's directory scan from racing a concurrent
// write-temp-then-rename.
type Store struct {
	mu   sync.Mutex
	root string
}

// New builds a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("file: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file: create root directory: %w", err)
	}
	return &Store{root: dir}, nil
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.root, sessionID+".json")
}

// Save implements session.Backend.
func (s *Store) Save(_ context.Context, sessionID string, doc session.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("file: encode session %s: %w", sessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.root, sessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("file: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(sessionID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file: rename into place: %w", err)
	}
	return nil
}

// Load implements session.Backend.
func (s *Store) Load(_ context.Context, sessionID string) (session.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file: session %s: %w", sessionID, reacterr.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("file: read session %s: %w", sessionID, err)
	}
	var doc session.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("file: decode session %s: %w", sessionID, reacterr.ErrSessionCorrupt)
	}
	return doc, nil
}

// Exists implements session.Backend.
func (s *Store) Exists(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(s.path(sessionID))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// List implements session.Backend.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("file: list sessions: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".json"))
	}
	return out, nil
}

// Delete implements session.Backend. Deleting a missing session is a no-op.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("file: delete session %s: %w", sessionID, err)
	}
	return nil
}

// Info implements session.Backend.
func (s *Store) Info(_ context.Context, sessionID string) (session.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := os.Stat(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return session.Info{}, fmt.Errorf("file: session %s: %w", sessionID, reacterr.ErrSessionNotFound)
		}
		return session.Info{}, err
	}
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		return session.Info{}, err
	}
	var doc session.Document
	componentCount := 0
	if json.Unmarshal(data, &doc) == nil {
		componentCount = len(doc)
	}
	return session.Info{
		SessionID:      sessionID,
		Size:           fi.Size(),
		ComponentCount: componentCount,
		LastModified:   fi.ModTime(),
	}, nil
}
