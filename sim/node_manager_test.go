package sim

import "testing"

func newTestNodeManager() *NodeManager {
	return NewNodeManager(NewStore(newEmptyState()))
}

func TestNodeManager_AbsentNodeIsImplicitlyAvailable(t *testing.T) {
	m := newTestNodeManager()

	if m.Has("alb-1") {
		t.Fatal("node should not have a row yet")
	}
	if !m.IsAvailable("alb-1") {
		t.Error("an absent node should be implicitly available")
	}
	if m.IsUnavailable("alb-1") {
		t.Error("an absent node should not be unavailable")
	}
}

func TestNodeManager_SetAndGet(t *testing.T) {
	m := newTestNodeManager()
	m.Set(NodeState{NodeID: "alb-1", Status: StatusDegraded, Sublabel: "high latency"})

	got, ok := m.Get("alb-1")
	if !ok {
		t.Fatal("expected node row to exist after Set")
	}
	if got.Status != StatusDegraded || got.Sublabel != "high latency" {
		t.Errorf("got %+v", got)
	}
}

func TestNodeManager_Update_LazyCreatesAvailable(t *testing.T) {
	m := newTestNodeManager()

	m.Update("alb-1", 1000, func(n NodeState) NodeState {
		n.Sublabel = "first touch"
		return n
	})

	got, ok := m.Get("alb-1")
	if !ok {
		t.Fatal("Update should create a row for an absent node")
	}
	if got.Status != StatusAvailable {
		t.Errorf("lazily created row should default to available, got %q", got.Status)
	}
	if got.LastStateChangeMs != 1000 {
		t.Errorf("LastStateChangeMs = %d, want 1000", got.LastStateChangeMs)
	}
}

func TestNodeManager_FailRecoverDegrade(t *testing.T) {
	m := newTestNodeManager()

	m.Fail("db-primary", "disk full", 100)
	got, _ := m.Get("db-primary")
	if got.Status != StatusUnavailable || got.Sublabel != "disk full" || got.LastStateChangeMs != 100 {
		t.Errorf("Fail: got %+v", got)
	}

	m.Degrade("db-primary", "replication lag", 200)
	got, _ = m.Get("db-primary")
	if got.Status != StatusDegraded || got.Sublabel != "replication lag" || got.LastStateChangeMs != 200 {
		t.Errorf("Degrade: got %+v", got)
	}

	m.Recover("db-primary", 300)
	got, _ = m.Get("db-primary")
	if got.Status != StatusAvailable || got.Sublabel != "" || got.LastStateChangeMs != 300 {
		t.Errorf("Recover: got %+v", got)
	}
}

func TestNodeManager_IsUnavailableAndIsAvailable(t *testing.T) {
	m := newTestNodeManager()
	m.Fail("db-primary", "down", 0)
	m.Degrade("db-standby", "slow", 0)

	if !m.IsUnavailable("db-primary") {
		t.Error("db-primary should be unavailable")
	}
	if m.IsAvailable("db-primary") {
		t.Error("db-primary should not report available")
	}

	if m.IsUnavailable("db-standby") {
		t.Error("degraded is not the same as unavailable")
	}
	if !m.IsAvailable("db-standby") {
		t.Error("degraded should still report available (only unavailable is excluded)")
	}
}

func TestNodeManager_All_SortedByID(t *testing.T) {
	m := newTestNodeManager()
	m.Set(NodeState{NodeID: "db-standby"})
	m.Set(NodeState{NodeID: "alb-1"})
	m.Set(NodeState{NodeID: "edge-us-east"})

	all := m.All()
	want := []string{"alb-1", "db-standby", "edge-us-east"}
	if len(all) != len(want) {
		t.Fatalf("All() returned %d nodes, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].NodeID != id {
			t.Errorf("All()[%d].NodeID = %q, want %q", i, all[i].NodeID, id)
		}
	}
	if m.Count() != 3 {
		t.Errorf("Count() = %d, want 3", m.Count())
	}
}

func TestNodeManager_Remove(t *testing.T) {
	m := newTestNodeManager()
	m.Set(NodeState{NodeID: "alb-1"})

	m.Remove("alb-1")
	if m.Has("alb-1") {
		t.Error("node row should be gone after Remove")
	}

	t.Run("removing an absent id is a no-op on map identity", func(t *testing.T) {
		before := m.store.GetState().Nodes
		m.Remove("never-existed")
		if !sameNodeMap(m.store.GetState().Nodes, before) {
			t.Error("Remove on a missing id should not mint a new nodes map")
		}
	})
}
