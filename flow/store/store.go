// Package store provides persistence for conversation traversal state.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested conversation or snapshot
// does not exist.
var ErrNotFound = errors.New("not found")

// Store persists conversation state turn by turn.
//
// The engine writes state after every transition so a conversation
// survives process restarts, and delivery channels can park a
// conversation under a named snapshot and resume it later.
//
// Implementations: MemStore for tests and short-lived bots,
// SQLiteStore for single-process deployments, MySQLStore for
// production fleets.
//
// Type parameter S is the state type to persist; it must be
// JSON-serializable.
type Store[S any] interface {
	// SaveTurn persists the state after one conversation turn.
	// Turns are identified by conversationID plus a sequential turn
	// number starting at 1; saving an existing turn replaces it.
	SaveTurn(ctx context.Context, conversationID string, turn int, nodeID string, state S) error

	// LoadLatest retrieves the most recent state for a conversation.
	// Returns ErrNotFound when the conversation has no saved turns.
	LoadLatest(ctx context.Context, conversationID string) (state S, turn int, err error)

	// SaveSnapshot stores a named snapshot of conversation state so a
	// parked conversation can be resumed later. Saving an existing
	// label overwrites it.
	SaveSnapshot(ctx context.Context, label string, state S, turn int) error

	// LoadSnapshot retrieves a named snapshot. Returns ErrNotFound
	// when the label does not exist.
	LoadSnapshot(ctx context.Context, label string) (state S, turn int, err error)
}

// TurnRecord is one persisted conversation turn.
type TurnRecord[S any] struct {
	// Turn is the sequential turn number (1-indexed).
	Turn int

	// NodeID is the node the conversation was on after this turn.
	NodeID string

	// State is the conversation state after the turn completed.
	State S
}

// Snapshot is a named parked copy of conversation state.
type Snapshot[S any] struct {
	Label string
	State S
	Turn  int
}
