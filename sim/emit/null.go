package emit

import "context"

// NullEmitter implements Emitter by discarding all events.
//
// Use cases:
//   - Headless batch runs where event logging is not wanted.
//   - Tests that don't care about observability output.
//   - Disabling event emission without changing call sites.
type NullEmitter struct{}

// NewNullEmitter returns a NullEmitter. Safe for concurrent use, zero overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards event.
func (n *NullEmitter) Emit(event Event) {}

// EmitBatch discards events and always returns nil.
func (n *NullEmitter) EmitBatch(_ context.Context, events []Event) error {
	return nil
}

// Flush is a no-op; NullEmitter buffers nothing.
func (n *NullEmitter) Flush(_ context.Context) error {
	return nil
}
