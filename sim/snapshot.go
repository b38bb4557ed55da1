package sim

import "sort"

// EdgeKey identifies one directed edge by its endpoints, used to key the
// animating-edges derivation in Snapshot.
type EdgeKey struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Snapshot is the full externally visible view of a ScenarioRunner at one
// instant — everything seek_to/advance_to/get_snapshot return (spec.md
// §6). AnimatingEdges is derived, not stored: a traveling token on edge i
// contributes (path[i], path[i+1]); a waiting token also contributes
// (path[i], path[i+1]), where i is its unchanged CurrentEdgeIndex, i.e. the
// edge it just finished traversing into its current wait point.
type Snapshot struct {
	TimeMs            int64           `json:"time_ms"`
	Nodes             []NodeState     `json:"nodes"`
	Tokens            []Token         `json:"tokens"`
	WaitPoints        []WaitPointState `json:"wait_points"`
	AnimatingEdges    []EdgeKey       `json:"animating_edges"`
	ActiveFlowID      string          `json:"active_flow_id,omitempty"`
	ProcessedEventIDs []string        `json:"processed_event_ids"`
}

// buildSnapshot assembles a Snapshot from state, sorting every slice for
// deterministic JSON output regardless of Go's randomized map iteration
// order.
func buildSnapshot(state SimulationState, activeFlowID string) Snapshot {
	nodes := make([]NodeState, 0, len(state.Nodes))
	for _, n := range state.Nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeID < nodes[j].NodeID })

	tokens := make([]Token, 0, len(state.Tokens))
	for _, t := range state.Tokens {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })

	waitPoints := make([]WaitPointState, 0, len(state.WaitPoints))
	for _, w := range state.WaitPoints {
		waitPoints = append(waitPoints, w)
	}
	sort.Slice(waitPoints, func(i, j int) bool { return waitPoints[i].NodeID < waitPoints[j].NodeID })

	eventIDs := make([]string, 0, len(state.ProcessedEventIDs))
	for id := range state.ProcessedEventIDs {
		eventIDs = append(eventIDs, id)
	}
	sort.Strings(eventIDs)

	return Snapshot{
		TimeMs:            state.TimeMs,
		Nodes:             nodes,
		Tokens:            tokens,
		WaitPoints:        waitPoints,
		AnimatingEdges:    animatingEdges(tokens),
		ActiveFlowID:      activeFlowID,
		ProcessedEventIDs: eventIDs,
	}
}

// animatingEdges derives the visually "in motion" edge set from tokens,
// already sorted by id so the output order is stable. Duplicate edges
// (several tokens on the same segment) collapse to one entry.
func animatingEdges(tokens []Token) []EdgeKey {
	seen := make(map[EdgeKey]struct{})
	var out []EdgeKey
	add := func(k EdgeKey) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	for _, t := range tokens {
		if t.Status != TokenTraveling && t.Status != TokenWaiting {
			continue
		}
		// Both cases resolve to the same underlying edge: a traveling
		// token is mid-transit on it, a waiting token just finished
		// traversing it into its current wait point (current_edge_index
		// is left unchanged by enqueue — see moveToNextSegment in
		// runner.go).
		if t.CurrentEdgeIndex >= 0 && t.CurrentEdgeIndex+1 < len(t.Path) {
			add(EdgeKey{Source: t.Path[t.CurrentEdgeIndex], Target: t.Path[t.CurrentEdgeIndex+1]})
		}
	}
	return out
}
