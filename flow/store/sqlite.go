package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// It keeps conversation turns and snapshots in a single-file database.
// Designed for:
//   - Development and testing with zero setup
//   - Single-process bot deployments
//   - Local runs that must survive restarts
//
// Uses WAL mode so delivery reads don't block turn writes.
//
// Schema:
//   - conversation_turns: turn-by-turn traversal history
//   - conversation_snapshots: named parked conversations
//
// Type parameter S is the state type to persist (must be
// JSON-serializable).
type SQLiteStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed store.
//
// The path parameter is the database file location; use ":memory:" for
// an in-memory database in tests. The store creates the file, schema
// and pragmas on first use.
//
// Example:
//
//	st, err := store.NewSQLiteStore[flow.ConversationState]("./bot.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore[S]{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required schema if it doesn't exist.
func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	turnsTable := `
		CREATE TABLE IF NOT EXISTS conversation_turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			node_id TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(conversation_id, turn)
		)
	`
	if _, err := s.db.ExecContext(ctx, turnsTable); err != nil {
		return fmt.Errorf("failed to create conversation_turns table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_turns_conversation ON conversation_turns(conversation_id, turn)"); err != nil {
		return fmt.Errorf("failed to create idx_turns_conversation: %w", err)
	}

	snapshotsTable := `
		CREATE TABLE IF NOT EXISTS conversation_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL UNIQUE,
			state TEXT NOT NULL,
			turn INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, snapshotsTable); err != nil {
		return fmt.Errorf("failed to create conversation_snapshots table: %w", err)
	}

	return nil
}

// SaveTurn persists one conversation turn (implements Store).
//
// If a turn with the same conversation id and number already exists it
// is replaced.
func (s *SQLiteStore[S]) SaveTurn(ctx context.Context, conversationID string, turn int, nodeID string, state S) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO conversation_turns (conversation_id, turn, node_id, state)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(conversation_id, turn) DO UPDATE SET
			node_id = excluded.node_id,
			state = excluded.state
	`

	if _, err := s.db.ExecContext(ctx, query, conversationID, turn, nodeID, string(stateJSON)); err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	return nil
}

// LoadLatest retrieves the most recent turn for a conversation
// (implements Store). Returns ErrNotFound for unknown conversations.
func (s *SQLiteStore[S]) LoadLatest(ctx context.Context, conversationID string) (state S, turn int, err error) {
	if err := s.checkOpen(); err != nil {
		var zero S
		return zero, 0, err
	}

	query := `
		SELECT turn, state
		FROM conversation_turns
		WHERE conversation_id = ?
		ORDER BY turn DESC
		LIMIT 1
	`

	var stateJSON string
	err = s.db.QueryRowContext(ctx, query, conversationID).Scan(&turn, &stateJSON)
	if err == sql.ErrNoRows {
		var zero S
		return zero, 0, ErrNotFound
	}
	if err != nil {
		var zero S
		return zero, 0, fmt.Errorf("failed to load latest turn: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		var zero S
		return zero, 0, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return state, turn, nil
}

// SaveSnapshot stores a named snapshot (implements Store). Saving an
// existing label overwrites it.
func (s *SQLiteStore[S]) SaveSnapshot(ctx context.Context, label string, state S, turn int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO conversation_snapshots (label, state, turn)
		VALUES (?, ?, ?)
		ON CONFLICT(label) DO UPDATE SET
			state = excluded.state,
			turn = excluded.turn,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, label, string(stateJSON), turn); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot retrieves a named snapshot (implements Store).
func (s *SQLiteStore[S]) LoadSnapshot(ctx context.Context, label string) (state S, turn int, err error) {
	if err := s.checkOpen(); err != nil {
		var zero S
		return zero, 0, err
	}

	query := `
		SELECT state, turn
		FROM conversation_snapshots
		WHERE label = ?
	`

	var stateJSON string
	err = s.db.QueryRowContext(ctx, query, label).Scan(&stateJSON, &turn)
	if err == sql.ErrNoRows {
		var zero S
		return zero, 0, ErrNotFound
	}
	if err != nil {
		var zero S
		return zero, 0, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		var zero S
		return zero, 0, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return state, turn, nil
}

func (s *SQLiteStore[S]) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// Close closes the database connection. Calling Close multiple times is
// safe.
func (s *SQLiteStore[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive. Useful for health
// checks.
func (s *SQLiteStore[S]) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore[S]) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}
