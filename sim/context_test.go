package sim

import "testing"

func TestExecutionContext_IsAvailable(t *testing.T) {
	state := newEmptyState()
	state.Nodes["db-primary"] = NodeState{NodeID: "db-primary", Status: StatusAvailable}
	state.Nodes["db-standby"] = NodeState{NodeID: "db-standby", Status: StatusDegraded}
	state.Nodes["alb-1"] = NodeState{NodeID: "alb-1", Status: StatusUnavailable}
	ctx := ExecutionContext{State: state}

	if !ctx.IsAvailable("db-primary") {
		t.Error("an available node should report available")
	}
	if !ctx.IsAvailable("db-standby") {
		t.Error("a degraded node should still report available: degraded is not unavailable (spec.md §3)")
	}
	if ctx.IsAvailable("alb-1") {
		t.Error("an unavailable node should report unavailable")
	}
	if !ctx.IsAvailable("never-touched") {
		t.Error("a node absent from the nodes slice should be implicitly available")
	}
}

func TestExecutionContext_EdgeDuration(t *testing.T) {
	ctx := ExecutionContext{
		TokenFlowConfig: &TokenFlowConfig{
			DefaultEdgeDurationMs: 100,
			EdgeTimings:           []EdgeTiming{{Source: "a", Target: "b", DurationMs: 250}},
		},
	}
	if got := ctx.EdgeDuration("a", "b"); got != 250 {
		t.Errorf("EdgeDuration(a,b) = %d, want 250 (per-edge override)", got)
	}
	if got := ctx.EdgeDuration("b", "c"); got != 100 {
		t.Errorf("EdgeDuration(b,c) = %d, want 100 (default)", got)
	}
	if got := (ExecutionContext{}).EdgeDuration("x", "y"); got != 0 {
		t.Errorf("EdgeDuration with no TokenFlowConfig = %d, want 0", got)
	}
}

func TestExecutionContext_NodeKindAndEdges(t *testing.T) {
	ctx := ExecutionContext{Graph: testGraph()}

	if got := ctx.NodeKind("alb-1"); got == "" {
		t.Error("expected a non-empty kind for a known node")
	}
	if got := ctx.NodeKind("does-not-exist"); got != "" {
		t.Errorf("NodeKind for an unknown node = %q, want empty", got)
	}

	if len(ctx.OutgoingEdges("az-a")) == 0 {
		t.Error("expected az-a to have outgoing edges in testGraph")
	}
	if len(ctx.IncomingEdges("db-primary")) == 0 {
		t.Error("expected db-primary to have incoming edges in testGraph")
	}
}
