// Package memory provides an in-memory storage implementation, used by tests
// and the local REPL adapter.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/louisbranch/cardpath/internal/session"
	"github.com/louisbranch/cardpath/internal/storage"
)

// entry pairs a session with its per-user mutation lock.
type entry struct {
	mu   sync.Mutex
	sess session.Session
}

// Store keeps sessions and telemetry events in process memory.
type Store struct {
	mu      sync.RWMutex
	entries map[int64]*entry

	telemetryMu sync.Mutex
	telemetry   []storage.TelemetryEvent

	clock func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		entries: make(map[int64]*entry),
		clock:   time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (s *Store) SetClock(clock func() time.Time) {
	s.clock = clock
}

// lookup returns the entry for a user, creating it when create is set.
func (s *Store) lookup(userID int64, create bool) (*entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()
	if ok || !create {
		return e, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[userID]; ok {
		return e, false
	}
	e = &entry{sess: session.New(userID, s.clock())}
	s.entries[userID] = e
	return e, true
}

// GetOrCreate implements storage.SessionStore.
func (s *Store) GetOrCreate(ctx context.Context, userID int64) (session.Session, bool, error) {
	if err := ctx.Err(); err != nil {
		return session.Session{}, false, err
	}
	e, created := s.lookup(userID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Clone(), created, nil
}

// Get implements storage.SessionStore.
func (s *Store) Get(ctx context.Context, userID int64) (session.Session, error) {
	if err := ctx.Err(); err != nil {
		return session.Session{}, err
	}
	e, _ := s.lookup(userID, false)
	if e == nil {
		return session.Session{}, storage.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Clone(), nil
}

// Mutate implements storage.SessionStore. The per-entry mutex serializes
// mutation per user; fn runs on a clone that is committed only on success.
func (s *Store) Mutate(ctx context.Context, userID int64, fn func(*session.Session) error) (session.Session, error) {
	if err := ctx.Err(); err != nil {
		return session.Session{}, err
	}
	e, _ := s.lookup(userID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.sess.Clone()
	if err := fn(&next); err != nil {
		return session.Session{}, err
	}
	next.UpdatedAt = s.clock().UTC()
	e.sess = next
	return next.Clone(), nil
}

// AppendTelemetryEvent implements storage.TelemetryStore.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.telemetryMu.Lock()
	s.telemetry = append(s.telemetry, evt)
	s.telemetryMu.Unlock()
	return nil
}

// TelemetryEvents returns a copy of the recorded telemetry, for tests.
func (s *Store) TelemetryEvents() []storage.TelemetryEvent {
	s.telemetryMu.Lock()
	defer s.telemetryMu.Unlock()
	out := make([]storage.TelemetryEvent, len(s.telemetry))
	copy(out, s.telemetry)
	return out
}

var (
	_ storage.SessionStore   = (*Store)(nil)
	_ storage.TelemetryStore = (*Store)(nil)
)
