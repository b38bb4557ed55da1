package sim

import "reflect"

// SimulationState is the composite, logically immutable state of one
// ScenarioRunner at one instant. It has five slices — nodes, tokens,
// wait_points, processed_event_ids, algorithm_state — each a map kept
// under its own identity. Replacing one slice (via updateSlice) produces a
// new SimulationState value that shares every other slice's map reference
// unchanged, giving the checkpoint log O(changes) memory cost rather than
// O(checkpoints x state size).
type SimulationState struct {
	Nodes              map[string]NodeState
	Tokens             map[string]Token
	WaitPoints         map[string]WaitPointState
	ProcessedEventIDs  map[string]struct{}
	AlgorithmState     map[string]interface{}

	TimeMs int64
}

// newEmptyState returns the zero SimulationState: five empty, non-nil maps
// at time 0.
func newEmptyState() SimulationState {
	return SimulationState{
		Nodes:             make(map[string]NodeState),
		Tokens:            make(map[string]Token),
		WaitPoints:        make(map[string]WaitPointState),
		ProcessedEventIDs: make(map[string]struct{}),
		AlgorithmState:    make(map[string]interface{}),
	}
}

// withNodes returns a copy of s with the Nodes slice replaced by fn's
// result, provided fn actually returned a different map. If fn returns the
// same map identity it was given (no-op update), s is returned unchanged —
// this is the structural-sharing invariant from spec.md §4.1: unmodified
// slices keep their reference across state transitions.
func (s SimulationState) withNodes(fn func(map[string]NodeState) map[string]NodeState) SimulationState {
	next := fn(s.Nodes)
	if sameNodeMap(next, s.Nodes) {
		return s
	}
	s.Nodes = next
	return s
}

func (s SimulationState) withTokens(fn func(map[string]Token) map[string]Token) SimulationState {
	next := fn(s.Tokens)
	if sameTokenMap(next, s.Tokens) {
		return s
	}
	s.Tokens = next
	return s
}

func (s SimulationState) withWaitPoints(fn func(map[string]WaitPointState) map[string]WaitPointState) SimulationState {
	next := fn(s.WaitPoints)
	if sameWaitPointMap(next, s.WaitPoints) {
		return s
	}
	s.WaitPoints = next
	return s
}

func (s SimulationState) withProcessedEventIDs(fn func(map[string]struct{}) map[string]struct{}) SimulationState {
	next := fn(s.ProcessedEventIDs)
	if sameEventIDMap(next, s.ProcessedEventIDs) {
		return s
	}
	s.ProcessedEventIDs = next
	return s
}

func (s SimulationState) withAlgorithmState(fn func(map[string]interface{}) map[string]interface{}) SimulationState {
	next := fn(s.AlgorithmState)
	if sameAlgoMap(next, s.AlgorithmState) {
		return s
	}
	s.AlgorithmState = next
	return s
}

// identity-equality helpers: Go maps are reference types, so == compares
// identity (same underlying hmap), not contents. These exist purely so
// callers can compare pointers without unsafe or reflect.
func sameNodeMap(a, b map[string]NodeState) bool             { return mapIdentity(a) == mapIdentity(b) }
func sameTokenMap(a, b map[string]Token) bool                { return mapIdentity(a) == mapIdentity(b) }
func sameWaitPointMap(a, b map[string]WaitPointState) bool   { return mapIdentity(a) == mapIdentity(b) }
func sameEventIDMap(a, b map[string]struct{}) bool           { return mapIdentity(a) == mapIdentity(b) }
func sameAlgoMap(a, b map[string]interface{}) bool           { return mapIdentity(a) == mapIdentity(b) }

// mapIdentity returns the underlying hmap pointer of a map value, enabling
// reference-identity comparison (Go's == on maps only supports nil checks).
func mapIdentity(m interface{}) uintptr {
	v := reflect.ValueOf(m)
	if v.IsNil() {
		return 0
	}
	return v.Pointer()
}

// cloneNodes returns a shallow copy of m suitable as the starting point for
// a structural-sharing update: mutate the copy, leave m untouched.
func cloneNodes(m map[string]NodeState) map[string]NodeState {
	out := make(map[string]NodeState, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneTokens(m map[string]Token) map[string]Token {
	out := make(map[string]Token, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneWaitPoints(m map[string]WaitPointState) map[string]WaitPointState {
	out := make(map[string]WaitPointState, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneEventIDs(m map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneAlgorithmState(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
