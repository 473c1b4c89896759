// Package redis implements session.Backend on top of a key-value store:
// "<prefix><session_id>" holds the JSON document, "<prefix><session_id>:meta"
// holds lastModified as epoch milliseconds (§6.2).
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentscope-go/reactcore/reacterr"
	"github.com/agentscope-go/reactcore/session"
)

// Store is a Redis-backed session.Backend.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New builds a Store over an already-constructed client. prefix defaults
// to "session:" when empty; ttl, when non-zero, is applied to every key
// written by Save so stale sessions expire without an explicit Delete.
func New(client redis.UniversalClient, prefix string, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis: client is required")
	}
	if prefix == "" {
		prefix = "session:"
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}, nil
}

func (s *Store) docKey(sessionID string) string  { return s.prefix + sessionID }
func (s *Store) metaKey(sessionID string) string { return s.prefix + sessionID + ":meta" }

// Save implements session.Backend.
func (s *Store) Save(ctx context.Context, sessionID string, doc session.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redis: encode session %s: %w", sessionID, err)
	}

	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.docKey(sessionID), data, s.ttl)
	pipe.Set(ctx, s.metaKey(sessionID), now, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: save session %s: %w", sessionID, err)
	}
	return nil
}

// Load implements session.Backend.
func (s *Store) Load(ctx context.Context, sessionID string) (session.Document, error) {
	data, err := s.client.Get(ctx, s.docKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis: session %s: %w", sessionID, reacterr.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("redis: load session %s: %w", sessionID, err)
	}
	var doc session.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("redis: decode session %s: %w", sessionID, reacterr.ErrSessionCorrupt)
	}
	return doc, nil
}

// Exists implements session.Backend.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.docKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check session %s: %w", sessionID, err)
	}
	return n > 0, nil
}

// List implements session.Backend by scanning the document-key namespace.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasSuffix(key, ":meta") {
			continue
		}
		ids = append(ids, strings.TrimPrefix(key, s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis: list sessions: %w", err)
	}
	return ids, nil
}

// Delete implements session.Backend.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.docKey(sessionID), s.metaKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis: delete session %s: %w", sessionID, err)
	}
	return nil
}

// Info implements session.Backend.
func (s *Store) Info(ctx context.Context, sessionID string) (session.Info, error) {
	data, err := s.client.Get(ctx, s.docKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session.Info{}, fmt.Errorf("redis: session %s: %w", sessionID, reacterr.ErrSessionNotFound)
		}
		return session.Info{}, fmt.Errorf("redis: info session %s: %w", sessionID, err)
	}

	var lastModified time.Time
	if meta, err := s.client.Get(ctx, s.metaKey(sessionID)).Result(); err == nil {
		if ms, err := strconv.ParseInt(meta, 10, 64); err == nil {
			lastModified = time.UnixMilli(ms)
		}
	}

	var doc session.Document
	componentCount := 0
	if json.Unmarshal(data, &doc) == nil {
		componentCount = len(doc)
	}

	return session.Info{
		SessionID:      sessionID,
		Size:           int64(len(data)),
		ComponentCount: componentCount,
		LastModified:   lastModified,
	}, nil
}
