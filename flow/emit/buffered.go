package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory,
// organized by conversation for efficient retrieval.
//
// Use cases:
//   - Tests asserting on traversal behavior
//   - Debugging a conversation's path through a flow
//   - Post-hoc analysis of fallbacks and webhook failures
//
// Warning: all events stay in memory. For long-running deployments use
// Clear to drop finished conversations.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // conversationID -> events
}

// HistoryFilter specifies criteria for filtering conversation history.
//
// All fields are optional; set fields combine with AND logic.
type HistoryFilter struct {
	NodeID  string // filter by node id (empty = no filter)
	Msg     string // filter by event name (empty = no filter)
	MinTurn *int   // minimum turn number (nil = no filter)
	MaxTurn *int   // maximum turn number (nil = no filter)
}

// NewBufferedEmitter creates a new BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores the event in the conversation's history.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.ConversationID] = append(b.events[event.ConversationID], event)
}

// GetHistory returns all events for a conversation in emission order.
// Returns an empty slice for unknown conversations.
func (b *BufferedEmitter) GetHistory(conversationID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[conversationID]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// GetHistoryWithFilter returns a conversation's events matching the
// filter, in emission order.
func (b *BufferedEmitter) GetHistoryWithFilter(conversationID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, e := range b.events[conversationID] {
		if filter.NodeID != "" && e.NodeID != filter.NodeID {
			continue
		}
		if filter.Msg != "" && e.Msg != filter.Msg {
			continue
		}
		if filter.MinTurn != nil && e.Turn < *filter.MinTurn {
			continue
		}
		if filter.MaxTurn != nil && e.Turn > *filter.MaxTurn {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Clear drops all events for a conversation.
func (b *BufferedEmitter) Clear(conversationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.events, conversationID)
}

// ClearAll drops all buffered events.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = make(map[string][]Event)
}
