// Package mongo implements session.Backend on a single collection: one
// document per session, keyed by session_id, holding the JSON-encoded
// aggregated state alongside created_at/updated_at timestamps.
//
// The teacher's mongo session client (features/session/mongo/clients/mongo)
// is written against the v1 go.mongodb.org/mongo-driver import paths
// (go.mongodb.org/mongo-driver/{bson,mongo,mongo/options,mongo/readpref}),
// but this module's go.mod declares the v2 driver
// (go.mongodb.org/mongo-driver/v2), whose bson/mongo/options packages live
// under .../v2/... and whose API differs in several places (e.g.
// mongo.Connect takes no top-level Context argument, IndexView.CreateOne's
// options type changed). That teacher file cannot be imported as-is; this
// package keeps its shape — an Options struct carrying an already-dialled
// *mongo.Client plus database/collection names, an ensureIndexes step run
// once at construction, and an upsert-via-$setOnInsert idempotency pattern
// for the create path — but is written directly against the real v2 API
// surface actually available in this module. See DESIGN.md.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/agentscope-go/reactcore/reacterr"
	"github.com/agentscope-go/reactcore/session"
)

const (
	defaultCollection = "agent_sessions"
	defaultOpTimeout  = 5 * time.Second
)

// Options configures the Mongo session Store.
type Options struct {
	Client     *mongo.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store is a MongoDB-backed session.Backend.
type Store struct {
	coll    *mongo.Collection
	timeout time.Duration
}

type sessionDocument struct {
	SessionID string    `bson:"session_id"`
	State     bson.M    `bson:"state_data"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// New validates opts, ensures the unique session_id index exists, and
// returns a ready Store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo: client is required")
	}
	if err := session.ValidateIdentifier(opts.Database); err != nil {
		return nil, fmt.Errorf("mongo: database name: %w", err)
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultCollection
	}
	if err := session.ValidateIdentifier(collName); err != nil {
		return nil, fmt.Errorf("mongo: collection name: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}

	coll := opts.Client.Database(opts.Database).Collection(collName)

	ictx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ictx, index); err != nil {
		return nil, fmt.Errorf("mongo: ensure index: %w", err)
	}

	return &Store{coll: coll, timeout: timeout}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Save implements session.Backend as an idempotent upsert.
func (s *Store) Save(ctx context.Context, sessionID string, doc session.Document) error {
	state := make(bson.M, len(doc))
	for name, dict := range doc {
		state[name] = bson.M(dict)
	}
	now := time.Now().UTC()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"session_id": sessionID}
	update := bson.M{
		"$set": bson.M{
			"state_data": state,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"session_id": sessionID,
			"created_at": now,
		},
	}
	_, err := s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: save session %s: %w", sessionID, err)
	}
	return nil
}

// Load implements session.Backend.
func (s *Store) Load(ctx context.Context, sessionID string) (session.Document, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc sessionDocument
	if err := s.coll.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("mongo: session %s: %w", sessionID, reacterr.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("mongo: load session %s: %w", sessionID, err)
	}
	return toDocument(doc.State), nil
}

// toDocument converts a decoded bson.M of component-name to sub-document
// into a session.Document of component-name to state.Dict.
func toDocument(state bson.M) session.Document {
	out := make(session.Document, len(state))
	for name, v := range state {
		switch dict := v.(type) {
		case bson.M:
			out[name] = map[string]any(dict)
		case map[string]any:
			out[name] = dict
		default:
			out[name] = map[string]any{}
		}
	}
	return out
}

// Exists implements session.Backend.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.coll.CountDocuments(ctx, bson.M{"session_id": sessionID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongo: check session %s: %w", sessionID, err)
	}
	return n > 0, nil
}

// List implements session.Backend.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"session_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list sessions: %w", err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			SessionID string `bson:"session_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode session id: %w", err)
		}
		ids = append(ids, doc.SessionID)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: list sessions: %w", err)
	}
	return ids, nil
}

// Delete implements session.Backend.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.coll.DeleteOne(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("mongo: delete session %s: %w", sessionID, err)
	}
	return nil
}

// Info implements session.Backend.
func (s *Store) Info(ctx context.Context, sessionID string) (session.Info, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var doc sessionDocument
	if err := s.coll.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return session.Info{}, fmt.Errorf("mongo: session %s: %w", sessionID, reacterr.ErrSessionNotFound)
		}
		return session.Info{}, fmt.Errorf("mongo: info session %s: %w", sessionID, err)
	}
	size := int64(0)
	if raw, err := bson.Marshal(doc.State); err == nil {
		size = int64(len(raw))
	}
	return session.Info{
		SessionID:      sessionID,
		Size:           size,
		ComponentCount: len(doc.State),
		LastModified:   doc.UpdatedAt,
	}, nil
}
