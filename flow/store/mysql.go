package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store[S].
//
// Designed for:
//   - Production bots requiring durable conversation state
//   - Fleets where several delivery workers share one database
//   - Long-lived conversations that survive process restarts
//
// Uses connection pooling; all writes are single-statement upserts.
//
// Schema:
//   - conversation_turns: turn-by-turn traversal history
//   - conversation_snapshots: named parked conversations
//
// Type parameter S is the state type to persist (must be
// JSON-serializable).
type MySQLStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed store.
//
// The DSN format is the go-sql-driver form:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param=value...]
//
// Never hardcode credentials; read the DSN from the environment:
//
//	dsn := os.Getenv("MYSQL_DSN")
//	st, err := store.NewMySQLStore[flow.ConversationState](dsn)
//
// The store creates required tables on first use and configures the
// connection pool.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &MySQLStore[S]{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required schema if it doesn't exist.
func (m *MySQLStore[S]) createTables(ctx context.Context) error {
	turnsTable := `
		CREATE TABLE IF NOT EXISTS conversation_turns (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			conversation_id VARCHAR(255) NOT NULL,
			turn INT NOT NULL,
			node_id VARCHAR(255) NOT NULL,
			state JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_conversation (conversation_id),
			UNIQUE KEY unique_conversation_turn (conversation_id, turn)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, turnsTable); err != nil {
		return fmt.Errorf("failed to create conversation_turns table: %w", err)
	}

	snapshotsTable := `
		CREATE TABLE IF NOT EXISTS conversation_snapshots (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			label VARCHAR(255) NOT NULL,
			state JSON NOT NULL,
			turn INT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY unique_label (label)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, snapshotsTable); err != nil {
		return fmt.Errorf("failed to create conversation_snapshots table: %w", err)
	}

	return nil
}

// SaveTurn persists one conversation turn (implements Store).
func (m *MySQLStore[S]) SaveTurn(ctx context.Context, conversationID string, turn int, nodeID string, state S) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO conversation_turns (conversation_id, turn, node_id, state)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			node_id = VALUES(node_id),
			state = VALUES(state)
	`

	if _, err := m.db.ExecContext(ctx, query, conversationID, turn, nodeID, string(stateJSON)); err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	return nil
}

// LoadLatest retrieves the most recent turn for a conversation
// (implements Store).
func (m *MySQLStore[S]) LoadLatest(ctx context.Context, conversationID string) (state S, turn int, err error) {
	if err := m.checkOpen(); err != nil {
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
	err = m.db.QueryRowContext(ctx, query, conversationID).Scan(&turn, &stateJSON)
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

// SaveSnapshot stores a named snapshot (implements Store).
func (m *MySQLStore[S]) SaveSnapshot(ctx context.Context, label string, state S, turn int) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO conversation_snapshots (label, state, turn)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			state = VALUES(state),
			turn = VALUES(turn)
	`

	if _, err := m.db.ExecContext(ctx, query, label, string(stateJSON), turn); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot retrieves a named snapshot (implements Store).
func (m *MySQLStore[S]) LoadSnapshot(ctx context.Context, label string) (state S, turn int, err error) {
	if err := m.checkOpen(); err != nil {
		var zero S
		return zero, 0, err
	}

	query := `
		SELECT state, turn
		FROM conversation_snapshots
		WHERE label = ?
	`

	var stateJSON string
	err = m.db.QueryRowContext(ctx, query, label).Scan(&stateJSON, &turn)
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

func (m *MySQLStore[S]) checkOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// Close closes the database connection. Calling Close multiple times is
// safe.
func (m *MySQLStore[S]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	return m.db.Close()
}

// Ping verifies the database connection is alive.
func (m *MySQLStore[S]) Ping(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.db.PingContext(ctx)
}
