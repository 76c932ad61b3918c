package emit

// NullEmitter implements Emitter by discarding all events.
//
// Use it where traversal observability is unwanted, without changing
// engine wiring.
type NullEmitter struct{}

// NewNullEmitter creates a new NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event without any processing.
func (n *NullEmitter) Emit(event Event) {}
