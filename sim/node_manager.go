package sim

import "sort"

// NodeManager is a thin, typed facade over Store's nodes slice.
type NodeManager struct {
	store *Store
}

// NewNodeManager returns a NodeManager bound to store.
func NewNodeManager(store *Store) *NodeManager {
	return &NodeManager{store: store}
}

// Get returns the NodeState for id. Absence is implicit "available": the
// second return value reports whether a row actually exists, not whether
// the node is available.
func (m *NodeManager) Get(id string) (NodeState, bool) {
	n, ok := m.store.GetState().Nodes[id]
	return n, ok
}

// Set replaces the full NodeState for id.
func (m *NodeManager) Set(state NodeState) {
	m.store.UpdateNodes(func(cur map[string]NodeState) map[string]NodeState {
		next := cloneNodes(cur)
		next[state.NodeID] = state
		return next
	})
}

// Update merges changes into the NodeState for id, creating one lazily
// (implicit available) if absent.
func (m *NodeManager) Update(id string, nowMs int64, changes func(NodeState) NodeState) {
	m.store.UpdateNodes(func(cur map[string]NodeState) map[string]NodeState {
		existing, ok := cur[id]
		if !ok {
			existing = NodeState{NodeID: id, Status: StatusAvailable, LastStateChangeMs: nowMs}
		}
		updated := changes(existing)
		next := cloneNodes(cur)
		next[id] = updated
		return next
	})
}

// Remove deletes the NodeState row for id (not used by any default
// handler — node rows are never destroyed per spec.md §3 lifecycles — and
// not used by ScenarioRunner.Reset either; kept for completeness of the
// manager contract).
func (m *NodeManager) Remove(id string) {
	m.store.UpdateNodes(func(cur map[string]NodeState) map[string]NodeState {
		if _, ok := cur[id]; !ok {
			return cur
		}
		next := cloneNodes(cur)
		delete(next, id)
		return next
	})
}

// Has reports whether a NodeState row exists for id.
func (m *NodeManager) Has(id string) bool {
	_, ok := m.store.GetState().Nodes[id]
	return ok
}

// Count returns the number of NodeState rows present.
func (m *NodeManager) Count() int {
	return len(m.store.GetState().Nodes)
}

// All returns every NodeState row, sorted by node id.
func (m *NodeManager) All() []NodeState {
	cur := m.store.GetState().Nodes
	out := make([]NodeState, 0, len(cur))
	for _, n := range cur {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// Fail sets status=unavailable and sublabel on id.
func (m *NodeManager) Fail(id, sublabel string, nowMs int64) {
	m.Update(id, nowMs, func(n NodeState) NodeState {
		n.Status = StatusUnavailable
		n.Sublabel = sublabel
		n.LastStateChangeMs = nowMs
		return n
	})
}

// Recover sets status=available and clears sublabel on id.
func (m *NodeManager) Recover(id string, nowMs int64) {
	m.Update(id, nowMs, func(n NodeState) NodeState {
		n.Status = StatusAvailable
		n.Sublabel = ""
		n.LastStateChangeMs = nowMs
		return n
	})
}

// Degrade sets status=degraded and sublabel on id.
func (m *NodeManager) Degrade(id, sublabel string, nowMs int64) {
	m.Update(id, nowMs, func(n NodeState) NodeState {
		n.Status = StatusDegraded
		n.Sublabel = sublabel
		n.LastStateChangeMs = nowMs
		return n
	})
}

// IsUnavailable reports whether id is currently unavailable. Absence is
// implicit available, so an unknown id reports false.
func (m *NodeManager) IsUnavailable(id string) bool {
	n, ok := m.Get(id)
	return ok && n.Status == StatusUnavailable
}

// IsAvailable reports whether id is usable for routing, i.e. anything
// other than unavailable (the default for an absent row). A degraded node
// still reports available — spec.md §3's three statuses are independent,
// and degraded is distinct from unavailable throughout §4.3-§4.5.
func (m *NodeManager) IsAvailable(id string) bool {
	n, ok := m.Get(id)
	if !ok {
		return true
	}
	return n.Status != StatusUnavailable
}
