package store

import (
	"context"
	"sync"
)

// MemStore is an in-memory implementation of Store[S].
//
// Designed for tests, development and short-lived bots where
// persistence across restarts isn't required. Thread-safe.
//
// Type parameter S is the state type to persist.
type MemStore[S any] struct {
	mu        sync.RWMutex
	turns     map[string][]TurnRecord[S] // conversationID -> turns
	snapshots map[string]Snapshot[S]     // label -> snapshot
}

// NewMemStore creates a new in-memory store.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		turns:     make(map[string][]TurnRecord[S]),
		snapshots: make(map[string]Snapshot[S]),
	}
}

// SaveTurn persists one conversation turn.
func (m *MemStore[S]) SaveTurn(_ context.Context, conversationID string, turn int, nodeID string, state S) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.turns[conversationID]
	for i := range records {
		if records[i].Turn == turn {
			records[i] = TurnRecord[S]{Turn: turn, NodeID: nodeID, State: state}
			return nil
		}
	}

	m.turns[conversationID] = append(records, TurnRecord[S]{
		Turn:   turn,
		NodeID: nodeID,
		State:  state,
	})
	return nil
}

// LoadLatest retrieves the turn with the highest turn number.
// Handles out-of-order saves correctly.
func (m *MemStore[S]) LoadLatest(_ context.Context, conversationID string) (state S, turn int, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records, exists := m.turns[conversationID]
	if !exists || len(records) == 0 {
		var zero S
		return zero, 0, ErrNotFound
	}

	latest := records[0]
	for _, r := range records[1:] {
		if r.Turn > latest.Turn {
			latest = r
		}
	}

	return latest.State, latest.Turn, nil
}

// SaveSnapshot stores a named snapshot, overwriting an existing label.
func (m *MemStore[S]) SaveSnapshot(_ context.Context, label string, state S, turn int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[label] = Snapshot[S]{Label: label, State: state, Turn: turn}
	return nil
}

// LoadSnapshot retrieves a named snapshot.
func (m *MemStore[S]) LoadSnapshot(_ context.Context, label string) (state S, turn int, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, exists := m.snapshots[label]
	if !exists {
		var zero S
		return zero, 0, ErrNotFound
	}

	return snap.State, snap.Turn, nil
}
