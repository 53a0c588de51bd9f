// Package audit records the lifecycle events a Commander run emits to
// a SQLite database, entirely outside the Commander's own in-memory
// tree: the store is one more subscriber on the event bus, not part
// of the scheduling loop, and the Commander has no knowledge it
// exists.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// NodeEvent is one recorded transition of a TaskNode within a run.
type NodeEvent struct {
	NodeID     string
	ParentID   string
	EventType  string
	Failed     bool
	Duration   time.Duration
	Detail     string
	RecordedAt time.Time
}

// Store defines the persistence interface for run and node-event
// history. Satisfied by SQLiteStore; an implementation backed by
// another database only needs to implement this interface.
type Store interface {
	StartRun(ctx context.Context) (string, error)
	EndRun(ctx context.Context, runID string) error
	RecordEvent(ctx context.Context, runID string, ev NodeEvent) error
	ListEvents(ctx context.Context, runID string) ([]NodeEvent, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed store
// at dbPath, enabling WAL mode and foreign keys the same way the rest
// of the stack's SQLite use does.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("audit: creating parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("audit: opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: enabling foreign keys: %w", err)
	}

	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: initializing schema: %w", err)
	}

	return store, nil
}

// NewMemoryStore opens an in-memory SQLite store, for tests and for
// opt-in audit with no on-disk footprint.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file::memory:?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("audit: opening memory database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: enabling foreign keys: %w", err)
	}

	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: initializing schema: %w", err)
	}

	return store, nil
}

// StartRun inserts a new run row stamped with a fresh UUID and
// returns its ID.
func (s *SQLiteStore) StartRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs (id, started_at) VALUES (?, ?)`, id, time.Now())
	if err != nil {
		return "", fmt.Errorf("audit: starting run: %w", err)
	}
	return id, nil
}

// EndRun stamps the run's end time.
func (s *SQLiteStore) EndRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET ended_at = ? WHERE id = ?`, time.Now(), runID)
	if err != nil {
		return fmt.Errorf("audit: ending run %s: %w", runID, err)
	}
	return nil
}

// RecordEvent appends one NodeEvent row for runID.
func (s *SQLiteStore) RecordEvent(ctx context.Context, runID string, ev NodeEvent) error {
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO node_events (run_id, node_id, parent_id, event_type, failed, duration_ms, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, ev.NodeID, ev.ParentID, ev.EventType, boolToInt(ev.Failed), ev.Duration.Milliseconds(), ev.Detail, ev.RecordedAt)
	if err != nil {
		return fmt.Errorf("audit: recording event for node %s: %w", ev.NodeID, err)
	}
	return nil
}

// ListEvents returns every recorded event for runID, oldest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, runID string) ([]NodeEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, parent_id, event_type, failed, duration_ms, detail, recorded_at
		FROM node_events
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("audit: querying events for run %s: %w", runID, err)
	}
	defer rows.Close()

	var events []NodeEvent
	for rows.Next() {
		var ev NodeEvent
		var parentID sql.NullString
		var durationMs sql.NullInt64
		var failed int
		if err := rows.Scan(&ev.NodeID, &parentID, &ev.EventType, &failed, &durationMs, &ev.Detail, &ev.RecordedAt); err != nil {
			return nil, fmt.Errorf("audit: scanning event: %w", err)
		}
		ev.ParentID = parentID.String
		ev.Failed = failed != 0
		ev.Duration = time.Duration(durationMs.Int64) * time.Millisecond
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterating events: %w", err)
	}
	return events, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
