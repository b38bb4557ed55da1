// Package emit provides event emission and observability for scenario runs.
package emit

import "context"

// Emitter receives and processes observability events from a scenario run.
//
// Emitters enable pluggable observability backends:
// - Logging: stdout, files, syslog.
// - Distributed tracing: OpenTelemetry.
// - Metrics: Prometheus.
// - In-memory history for tests and UIs.
//
// Implementations should be non-blocking, thread-safe, and resilient — a
// slow or failing backend must never stall or panic the simulation kernel.
type Emitter interface {
	// Emit sends an observability event to the configured backend. Must
	// not panic; errors should be logged internally rather than returned.
	Emit(event Event)

	// EmitBatch sends multiple events in a single operation. Events must
	// be processed in order (preserve happened-before). Returns an error
	// only on catastrophic failures (e.g. misconfiguration); individual
	// event failures should be logged, not returned.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush ensures all buffered events are sent to the backend. Safe to
	// call multiple times. Should respect ctx cancellation/deadlines.
	Flush(ctx context.Context) error
}
