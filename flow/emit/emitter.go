// Package emit provides pluggable observability for conversation
// traversal.
package emit

// Emitter receives observability events from the traversal engine.
//
// Implementations should be:
//   - Non-blocking: never slow down a conversation turn
//   - Thread-safe: turns for different conversations run concurrently
//   - Resilient: a failing backend must not crash a conversation
//
// Provided implementations: LogEmitter (structured log lines),
// NullEmitter (discard), BufferedEmitter (in-memory capture for tests
// and debugging), OTelEmitter (OpenTelemetry spans).
type Emitter interface {
	// Emit sends an event to the configured backend.
	//
	// Emit must not panic; errors are handled internally.
	Emit(event Event)
}
