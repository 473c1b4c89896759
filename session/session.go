// Package session implements the durable, aggregated capture of
// conversational state (§4.7): one document per session id, mapping
// component name to that component's state.Dict, written and read
// atomically by a pluggable Backend.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/agentscope-go/reactcore/reacterr"
	"github.com/agentscope-go/reactcore/state"
)

// maxIDLength bounds session_id per §4.7.
const maxIDLength = 255

// Document is the aggregated state captured for one session: component
// name (state.Module.ComponentName()) to that component's state.Dict.
type Document map[string]state.Dict

// Info reports size and freshness for one stored session, per §4.7's
// info(session_id) operation.
type Info struct {
	SessionID      string
	Size           int64
	ComponentCount int
	LastModified   time.Time
}

// Backend is the storage contract a concrete session layout (file,
// key-value, table) implements. Every method receives an already-validated
// session id; Backend implementations need not re-validate it.
type Backend interface {
	Save(ctx context.Context, sessionID string, doc Document) error
	Load(ctx context.Context, sessionID string) (Document, error)
	Exists(ctx context.Context, sessionID string) (bool, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, sessionID string) error
	Info(ctx context.Context, sessionID string) (Info, error)
}

// ValidateID enforces §4.7's session_id constraints: non-empty, no path
// separators, length at most 255.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: session id must not be empty", reacterr.ErrBadInput)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: session id exceeds %d characters", reacterr.ErrBadInput, maxIDLength)
	}
	if strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: session id must not contain a path separator", reacterr.ErrBadInput)
	}
	return nil
}

// ValidateIdentifier enforces §6.2's naming rule for backend-specific
// schema/table/collection names: letters, digits, underscore only, length
// at most 64. The mongo backend uses it to validate its operator-supplied
// database and collection names; the redis backend does not apply it to
// its key prefix.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("%w: identifier must not be empty", reacterr.ErrBadInput)
	}
	if len(name) > 64 {
		return fmt.Errorf("%w: identifier exceeds 64 characters", reacterr.ErrBadInput)
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			continue
		}
		return fmt.Errorf("%w: identifier %q contains a character other than letters, digits, or underscore", reacterr.ErrBadInput, name)
	}
	return nil
}
