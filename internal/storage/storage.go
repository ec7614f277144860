// Package storage defines the persistence interfaces for the card advisor.
//
// Sessions are mutated through a per-user serialized read-modify-write: the
// mutator runs on a copy and the copy is committed only when it succeeds, so
// an aborted event never leaves a partial session behind. Implementations
// (in-memory, SQLite) live in subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/cardpath/internal/session"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// SessionStore owns the session records, one per user identifier.
type SessionStore interface {
	// GetOrCreate returns the user's session, creating a fresh default one
	// the first time the user is seen. The second result reports creation.
	GetOrCreate(ctx context.Context, userID int64) (session.Session, bool, error)

	// Get returns the user's session, or ErrNotFound.
	Get(ctx context.Context, userID int64) (session.Session, error)

	// Mutate runs fn on a copy of the user's session (created first if
	// missing) and commits the copy when fn returns nil. Calls for the same
	// user are serialized in arrival order; calls for different users may
	// run concurrently. When fn fails the stored session is untouched and
	// the error is returned unchanged.
	Mutate(ctx context.Context, userID int64, fn func(*session.Session) error) (session.Session, error)
}

// TelemetryEvent is one operational telemetry record.
type TelemetryEvent struct {
	Timestamp time.Time
	UserID    int64
	Kind      string
	Detail    string
}

// TelemetryStore appends operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, evt TelemetryEvent) error
}
