// Package sqlite provides a SQLite-backed storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlitemigrate "github.com/louisbranch/cardpath/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/cardpath/internal/session"
	"github.com/louisbranch/cardpath/internal/storage"
	"github.com/louisbranch/cardpath/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists sessions and telemetry in SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time

	// userMu serializes mutation per user id within this process.
	userMuGuard sync.Mutex
	userMu      map[int64]*sync.Mutex
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{
		sqlDB:  sqlDB,
		clock:  time.Now,
		userMu: make(map[int64]*sync.Mutex),
	}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// lockUser returns the per-user mutation lock, creating it on first use.
func (s *Store) lockUser(userID int64) *sync.Mutex {
	s.userMuGuard.Lock()
	defer s.userMuGuard.Unlock()
	mu, ok := s.userMu[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.userMu[userID] = mu
	}
	return mu
}

// GetOrCreate implements storage.SessionStore.
func (s *Store) GetOrCreate(ctx context.Context, userID int64) (session.Session, bool, error) {
	if err := ctx.Err(); err != nil {
		return session.Session{}, false, err
	}
	mu := s.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.read(ctx, userID)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return session.Session{}, false, err
	}
	sess = session.New(userID, s.clock())
	if err := s.write(ctx, sess); err != nil {
		return session.Session{}, false, err
	}
	return sess, true, nil
}

// Get implements storage.SessionStore.
func (s *Store) Get(ctx context.Context, userID int64) (session.Session, error) {
	if err := ctx.Err(); err != nil {
		return session.Session{}, err
	}
	return s.read(ctx, userID)
}

// Mutate implements storage.SessionStore. The per-user lock serializes the
// read-modify-write; fn runs on a loaded copy that is written back only when
// it succeeds.
func (s *Store) Mutate(ctx context.Context, userID int64, fn func(*session.Session) error) (session.Session, error) {
	if err := ctx.Err(); err != nil {
		return session.Session{}, err
	}
	mu := s.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.read(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		sess = session.New(userID, s.clock())
	} else if err != nil {
		return session.Session{}, err
	}

	if err := fn(&sess); err != nil {
		return session.Session{}, err
	}
	sess.UpdatedAt = s.clock().UTC()
	if err := s.write(ctx, sess); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

func (s *Store) read(ctx context.Context, userID int64) (session.Session, error) {
	if s == nil || s.sqlDB == nil {
		return session.Session{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT age, state, compare_return, selected_bank, selected_cards, points,
       achievements, invited_count, preference_counts, preference_order,
       created_at, updated_at
  FROM sessions WHERE user_id = ?`, userID)

	var (
		stateLabel, compareLabel     string
		cardsJSON, achievementsJSON  string
		prefCountsJSON, prefOrderTxt string
		createdAt, updatedAt         int64
	)
	sess := session.Session{UserID: userID}
	err := row.Scan(
		&sess.Age, &stateLabel, &compareLabel, &sess.SelectedBank, &cardsJSON,
		&sess.Points, &achievementsJSON, &sess.InvitedCount, &prefCountsJSON,
		&prefOrderTxt, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("get session: %w", err)
	}

	state, ok := session.ParseState(stateLabel)
	if !ok {
		return session.Session{}, fmt.Errorf("get session: unknown state %q", stateLabel)
	}
	compareReturn, ok := session.ParseState(compareLabel)
	if !ok {
		return session.Session{}, fmt.Errorf("get session: unknown compare return %q", compareLabel)
	}
	sess.State = state
	sess.CompareReturn = compareReturn
	sess.CreatedAt = fromMillis(createdAt)
	sess.UpdatedAt = fromMillis(updatedAt)

	if sess.SelectedCards, err = decodeSet(cardsJSON); err != nil {
		return session.Session{}, fmt.Errorf("get session: selected cards: %w", err)
	}
	if sess.Achievements, err = decodeSet(achievementsJSON); err != nil {
		return session.Session{}, fmt.Errorf("get session: achievements: %w", err)
	}
	if err = json.Unmarshal([]byte(prefCountsJSON), &sess.PreferenceCounts); err != nil {
		return session.Session{}, fmt.Errorf("get session: preference counts: %w", err)
	}
	if err = json.Unmarshal([]byte(prefOrderTxt), &sess.PreferenceOrder); err != nil {
		return session.Session{}, fmt.Errorf("get session: preference order: %w", err)
	}
	return sess, nil
}

func (s *Store) write(ctx context.Context, sess session.Session) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	cardsJSON, err := encodeSet(sess.SelectedCards)
	if err != nil {
		return fmt.Errorf("put session: selected cards: %w", err)
	}
	achievementsJSON, err := encodeSet(sess.Achievements)
	if err != nil {
		return fmt.Errorf("put session: achievements: %w", err)
	}
	prefCounts := sess.PreferenceCounts
	if prefCounts == nil {
		prefCounts = map[string]int{}
	}
	prefCountsJSON, err := json.Marshal(prefCounts)
	if err != nil {
		return fmt.Errorf("put session: preference counts: %w", err)
	}
	prefOrder := sess.PreferenceOrder
	if prefOrder == nil {
		prefOrder = []string{}
	}
	prefOrderJSON, err := json.Marshal(prefOrder)
	if err != nil {
		return fmt.Errorf("put session: preference order: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (
    user_id, age, state, compare_return, selected_bank, selected_cards,
    points, achievements, invited_count, preference_counts, preference_order,
    created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    age = excluded.age,
    state = excluded.state,
    compare_return = excluded.compare_return,
    selected_bank = excluded.selected_bank,
    selected_cards = excluded.selected_cards,
    points = excluded.points,
    achievements = excluded.achievements,
    invited_count = excluded.invited_count,
    preference_counts = excluded.preference_counts,
    preference_order = excluded.preference_order,
    updated_at = excluded.updated_at`,
		sess.UserID, sess.Age, sess.State.String(), sess.CompareReturn.String(),
		sess.SelectedBank, cardsJSON, sess.Points, achievementsJSON,
		sess.InvitedCount, string(prefCountsJSON), string(prefOrderJSON),
		toMillis(sess.CreatedAt), toMillis(sess.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// AppendTelemetryEvent implements storage.TelemetryStore.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO telemetry_events (timestamp, user_id, kind, detail)
VALUES (?, ?, ?, ?)`,
		toMillis(evt.Timestamp), evt.UserID, evt.Kind, evt.Detail,
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

func encodeSet(set map[string]struct{}) (string, error) {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeSet(data string) (map[string]struct{}, error) {
	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

var (
	_ storage.SessionStore   = (*Store)(nil)
	_ storage.TelemetryStore = (*Store)(nil)
)
