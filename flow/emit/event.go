package emit

// Event is an observability event emitted during conversation
// traversal.
//
// The engine emits events for conversation start/end, each turn,
// fallback re-prompts, feature-gate blocks and webhook failures.
// Events flow to an Emitter, which may log them, trace them or buffer
// them for inspection.
type Event struct {
	// ConversationID identifies the conversation that emitted this
	// event.
	ConversationID string

	// Turn is the sequential turn number (1-indexed). Zero for
	// conversation-level events.
	Turn int

	// NodeID identifies the node the event concerns. Empty for
	// conversation-level events.
	NodeID string

	// Msg is the event name, e.g. "conversation_start", "turn",
	// "fallback", "webhook_error", "conversation_end".
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "variant": A/B variant serving this conversation
	//   - "node_type": type of the current node
	//   - "error": failure details
	//   - "duration_ms": turn latency in milliseconds
	Meta map[string]interface{}
}
