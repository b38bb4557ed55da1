package sim

import "sort"

// checkpointEntry is one (time, state) pair in the Store's append-only log.
type checkpointEntry struct {
	TimeMs int64
	State  SimulationState
}

// Store holds the current SimulationState plus a time-sorted checkpoint
// log, and exposes the slice-level update/restore operations spec.md §4.1
// requires. Unlike the teacher's generic Store[S] persistence interface
// (store/memory.go, store/sqlite.go, store/mysql.go), this is a single
// concrete, in-memory-only type: this spec has exactly one SimulationState
// shape and persistent backends are an explicit Non-goal.
//
// Store is not safe for concurrent use by multiple goroutines; callers
// embedding it in a multi-threaded host must serialize access themselves
// (spec.md §5) — ScenarioRunner does this with a single uncontended mutex.
type Store struct {
	current     SimulationState
	checkpoints []checkpointEntry
	initial     SimulationState
}

// NewStore returns a Store seeded with the given initial state at time 0.
// No checkpoint is recorded yet; callers typically call Checkpoint(0)
// immediately after construction (sim.New does this).
func NewStore(initial SimulationState) *Store {
	return &Store{current: initial, initial: initial}
}

// GetState returns the current, read-only SimulationState view.
func (s *Store) GetState() SimulationState {
	return s.current
}

// GetInitialState returns the state the Store was constructed with.
func (s *Store) GetInitialState() SimulationState {
	return s.initial
}

// UpdateNodes applies fn to the nodes slice and, only if fn produced a
// different map identity, publishes a new current state with that slice
// replaced. All other slices retain their identity (structural sharing).
func (s *Store) UpdateNodes(fn func(map[string]NodeState) map[string]NodeState) {
	s.current = s.current.withNodes(fn)
}

// UpdateTokens is UpdateNodes's sibling for the tokens slice.
func (s *Store) UpdateTokens(fn func(map[string]Token) map[string]Token) {
	s.current = s.current.withTokens(fn)
}

// UpdateWaitPoints is UpdateNodes's sibling for the wait_points slice.
func (s *Store) UpdateWaitPoints(fn func(map[string]WaitPointState) map[string]WaitPointState) {
	s.current = s.current.withWaitPoints(fn)
}

// UpdateProcessedEventIDs is UpdateNodes's sibling for the
// processed_event_ids slice.
func (s *Store) UpdateProcessedEventIDs(fn func(map[string]struct{}) map[string]struct{}) {
	s.current = s.current.withProcessedEventIDs(fn)
}

// UpdateAlgorithmState is UpdateNodes's sibling for the algorithm_state
// slice.
func (s *Store) UpdateAlgorithmState(fn func(map[string]interface{}) map[string]interface{}) {
	s.current = s.current.withAlgorithmState(fn)
}

// SetTimeMs sets the current state's clock without otherwise touching any
// slice.
func (s *Store) SetTimeMs(t int64) {
	s.current.TimeMs = t
}

// Checkpoint appends (timeMs, current state) to the log. Checkpoint times
// must be non-decreasing relative to the previous append; duplicate times
// are permitted, and on restore the later entry at an equal time wins
// (it is appended later in the slice, and restoreIndex picks the last
// matching entry).
func (s *Store) Checkpoint(timeMs int64) {
	s.checkpoints = append(s.checkpoints, checkpointEntry{TimeMs: timeMs, State: s.current})
}

// ClearCheckpoints empties the checkpoint log without touching the current
// state. Used only by full reset.
func (s *Store) ClearCheckpoints() {
	s.checkpoints = nil
}

// TruncateCheckpointsAfter drops every checkpoint entry with TimeMs > t.
// A seek backward in time must call this before recording any further
// checkpoints: restoring to an earlier state and then appending at that
// earlier time, without discarding the log's now-stale future entries,
// would violate Checkpoint's non-decreasing contract and corrupt
// RestoreTo's binary search on the next call.
func (s *Store) TruncateCheckpointsAfter(t int64) {
	idx := sort.Search(len(s.checkpoints), func(i int) bool {
		return s.checkpoints[i].TimeMs > t
	})
	s.checkpoints = s.checkpoints[:idx]
}

// RestoreTo binary-searches the checkpoint log for the greatest checkpoint
// with TimeMs <= targetMs, restores the Store's current state to it, and
// returns the actual checkpoint time used. If the log is empty or
// targetMs < 0, it restores the initial state at time 0 and returns 0.
//
// RestoreTo is pure with respect to the checkpoint log: the state at any
// time depends only on the log up to that time, never on prior restores.
func (s *Store) RestoreTo(targetMs int64) int64 {
	if targetMs < 0 || len(s.checkpoints) == 0 {
		s.current = s.initial
		return 0
	}

	// sort.Search finds the first index where TimeMs > targetMs; the
	// checkpoint just before it (if any) is the greatest one <= targetMs.
	// Checkpoints are appended in non-decreasing time order, so this is a
	// valid binary search.
	idx := sort.Search(len(s.checkpoints), func(i int) bool {
		return s.checkpoints[i].TimeMs > targetMs
	})

	if idx == 0 {
		s.current = s.initial
		return 0
	}

	// idx-1 is the last checkpoint with TimeMs <= targetMs. When several
	// checkpoints share that time, append order means idx-1 is already
	// the most recently appended of them, so it is the one that wins.
	entry := s.checkpoints[idx-1]
	s.current = entry.State
	return entry.TimeMs
}
