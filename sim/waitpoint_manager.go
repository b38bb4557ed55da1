package sim

// WaitPointManager is a thin, typed facade over Store's wait_points slice.
type WaitPointManager struct {
	store *Store
}

// NewWaitPointManager returns a WaitPointManager bound to store.
func NewWaitPointManager(store *Store) *WaitPointManager {
	return &WaitPointManager{store: store}
}

// Setup installs a WaitPointState for every config entry, called once
// during scenario initialization. Re-calling Setup replaces any existing
// queues at the named nodes with a fresh, empty state.
func (m *WaitPointManager) Setup(configs []WaitPointConfig) {
	if len(configs) == 0 {
		return
	}
	m.store.UpdateWaitPoints(func(cur map[string]WaitPointState) map[string]WaitPointState {
		next := cloneWaitPoints(cur)
		for _, c := range configs {
			next[c.NodeID] = WaitPointState{
				NodeID:            c.NodeID,
				TokenIDs:          nil,
				ProcessIntervalMs: c.ProcessIntervalMs,
				Strategy:          c.Strategy,
				Capacity:          c.Capacity,
			}
		}
		return next
	})
}

// Enqueue appends tokenID to node's wait point queue and returns its
// 0-based position. Idempotent for a given (node, token) pair: re-enqueuing
// a token already present returns its existing position without moving it.
// No-op (position -1) if node has no configured wait point.
func (m *WaitPointManager) Enqueue(node, tokenID string) int {
	position := -1
	m.store.UpdateWaitPoints(func(cur map[string]WaitPointState) map[string]WaitPointState {
		wp, ok := cur[node]
		if !ok {
			return cur
		}
		for i, id := range wp.TokenIDs {
			if id == tokenID {
				position = i
				return cur
			}
		}
		next := cloneWaitPoints(cur)
		wp.TokenIDs = append(append([]string{}, wp.TokenIDs...), tokenID)
		position = len(wp.TokenIDs) - 1
		next[node] = wp
		return next
	})
	return position
}

// CanRelease reports whether node's wait point is eligible to release a
// token at time now.
func (m *WaitPointManager) CanRelease(node string, now int64) bool {
	wp, ok := m.store.GetState().WaitPoints[node]
	if !ok {
		return false
	}
	return wp.CanRelease(now)
}

// NextReleaseTime returns the time at which node's wait point will next be
// eligible to release, and whether the node has a configured wait point.
func (m *WaitPointManager) NextReleaseTime(node string) (int64, bool) {
	wp, ok := m.store.GetState().WaitPoints[node]
	if !ok {
		return 0, false
	}
	return wp.LastProcessedMs + wp.ProcessIntervalMs, true
}

// Dequeue releases one token id from node's wait point (per its configured
// strategy; ranks is consulted only for strategy=="priority"), stamps
// LastProcessedMs = releaseTime, and re-numbers the remaining waiters'
// positions. Returns the released token id, or "" if nothing was eligible
// to dequeue.
func (m *WaitPointManager) Dequeue(node string, releaseTime int64, ranks map[string]int) string {
	var released string
	m.store.UpdateWaitPoints(func(cur map[string]WaitPointState) map[string]WaitPointState {
		wp, ok := cur[node]
		if !ok || len(wp.TokenIDs) == 0 {
			return cur
		}
		released = nextToDequeue(wp, ranks)
		remaining := make([]string, 0, len(wp.TokenIDs)-1)
		for _, id := range wp.TokenIDs {
			if id == released {
				continue
			}
			remaining = append(remaining, id)
		}
		wp.TokenIDs = remaining
		wp.LastProcessedMs = releaseTime
		next := cloneWaitPoints(cur)
		next[node] = wp
		return next
	})
	return released
}

// RemoveToken removes tokenID from whichever wait point holds it, if any.
func (m *WaitPointManager) RemoveToken(tokenID string) {
	m.store.UpdateWaitPoints(func(cur map[string]WaitPointState) map[string]WaitPointState {
		for node, wp := range cur {
			for i, id := range wp.TokenIDs {
				if id != tokenID {
					continue
				}
				next := cloneWaitPoints(cur)
				updated := wp
				updated.TokenIDs = append(append([]string{}, wp.TokenIDs[:i]...), wp.TokenIDs[i+1:]...)
				next[node] = updated
				return next
			}
		}
		return cur
	})
}

// PositionOf returns tokenID's 0-based position within its wait point, and
// whether it was found in any wait point at all.
func (m *WaitPointManager) PositionOf(tokenID string) (int, bool) {
	for _, wp := range m.store.GetState().WaitPoints {
		for i, id := range wp.TokenIDs {
			if id == tokenID {
				return i, true
			}
		}
	}
	return 0, false
}

// Get returns the WaitPointState installed at node, if any.
func (m *WaitPointManager) Get(node string) (WaitPointState, bool) {
	wp, ok := m.store.GetState().WaitPoints[node]
	return wp, ok
}

// ResetQueue clears every wait point's token queue (used only by full
// reset — WaitPoint configuration itself survives, per spec.md §3
// lifecycles: "destroyed only on full reset").
func (m *WaitPointManager) ResetQueue() {
	m.store.UpdateWaitPoints(func(cur map[string]WaitPointState) map[string]WaitPointState {
		next := cloneWaitPoints(cur)
		for node, wp := range next {
			wp.TokenIDs = nil
			wp.LastProcessedMs = 0
			next[node] = wp
		}
		return next
	})
}
