package sim

import "errors"

// Sentinel errors returned by manager and store operations (spec.md §4.2,
// §4.1). These are class-1 errors (fatal to the specific call, not to the
// runner): construction failures and manager contract violations.
var (
	// ErrDuplicateID is returned by TokenManager.Add when a token with the
	// given id already exists.
	ErrDuplicateID = errors.New("sim: duplicate id")

	// ErrNotFound names the absence of an id from the relevant slice. The
	// managers' own lookups (Get, Has) report absence with a bool and do
	// not return it.
	ErrNotFound = errors.New("sim: not found")

	// ErrAdvanceLoopExhausted is not returned as a Go error to callers of
	// advance_tokens — it is a class-2 logic anomaly (spec.md §7): the
	// fixed-point loop is allowed to exhaust its iteration cap and still
	// return a snapshot. It is kept as a named sentinel so the diagnostic
	// emit.Event's Meta can carry a stable string and so tests can assert
	// on it without string-matching a literal.
	ErrAdvanceLoopExhausted = errors.New("sim: advance_tokens exceeded iteration cap")
)

// SimError is a structured error returned from sim.New and sim.ValidateGraph
// for class-1 input validation failures: missing nodes referenced by
// edges, unknown strategy id, unrecognized AWS region. A route-request
// whose computed path is shorter than 2 is not a SimError: the runner
// reports it as a "route_request_path_too_short" diagnostic event. Mirrors the teacher's *graph.EngineError{Message, Code}
// shape.
type SimError struct {
	Message string
	Code    string
}

func (e *SimError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
