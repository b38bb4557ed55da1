package sim

import "testing"

func TestRoundRobinBalancer(t *testing.T) {
	t.Run("no candidates returns empty", func(t *testing.T) {
		ctx := ExecutionContext{State: newEmptyState()}
		chosen, delta := roundRobinBalancer{}.SelectNode("k", nil, ctx)
		if chosen != "" || delta != nil {
			t.Errorf("got (%q, %v), want (\"\", nil)", chosen, delta)
		}
	})

	t.Run("all unavailable falls back to candidates[0]", func(t *testing.T) {
		state := newEmptyState()
		state.Nodes["a"] = NodeState{NodeID: "a", Status: StatusUnavailable}
		state.Nodes["b"] = NodeState{NodeID: "b", Status: StatusUnavailable}
		ctx := ExecutionContext{State: state}

		chosen, delta := roundRobinBalancer{}.SelectNode("k", []string{"a", "b"}, ctx)
		if chosen != "a" {
			t.Errorf("chosen = %q, want a", chosen)
		}
		if delta != nil {
			t.Error("fallback path should not advance the cursor")
		}
	})

	t.Run("cycles through healthy candidates and advances the cursor", func(t *testing.T) {
		ctx := ExecutionContext{State: newEmptyState()}
		candidates := []string{"a", "b", "c"}

		first, delta1 := roundRobinBalancer{}.SelectNode("k", candidates, ctx)
		if first != "a" {
			t.Errorf("first pick = %q, want a", first)
		}
		ctx.State = ctx.State.withAlgorithmState(func(cur map[string]interface{}) map[string]interface{} {
			next := cloneAlgorithmState(cur)
			for k, v := range delta1 {
				next[k] = v
			}
			return next
		})

		second, delta2 := roundRobinBalancer{}.SelectNode("k", candidates, ctx)
		if second != "b" {
			t.Errorf("second pick = %q, want b", second)
		}
		ctx.State = ctx.State.withAlgorithmState(func(cur map[string]interface{}) map[string]interface{} {
			next := cloneAlgorithmState(cur)
			for k, v := range delta2 {
				next[k] = v
			}
			return next
		})

		third, _ := roundRobinBalancer{}.SelectNode("k", candidates, ctx)
		if third != "c" {
			t.Errorf("third pick = %q, want c", third)
		}
	})

	t.Run("skips unavailable candidates", func(t *testing.T) {
		state := newEmptyState()
		state.Nodes["a"] = NodeState{NodeID: "a", Status: StatusUnavailable}
		ctx := ExecutionContext{State: state}

		chosen, _ := roundRobinBalancer{}.SelectNode("k", []string{"a", "b"}, ctx)
		if chosen != "b" {
			t.Errorf("chosen = %q, want b (the only healthy candidate)", chosen)
		}
	})

	t.Run("distinct keys keep independent cursors", func(t *testing.T) {
		ctx := ExecutionContext{State: newEmptyState()}
		candidates := []string{"a", "b"}

		_, delta := roundRobinBalancer{}.SelectNode("key1", candidates, ctx)
		ctx.State = ctx.State.withAlgorithmState(func(cur map[string]interface{}) map[string]interface{} {
			next := cloneAlgorithmState(cur)
			for k, v := range delta {
				next[k] = v
			}
			return next
		})

		chosen, _ := roundRobinBalancer{}.SelectNode("key2", candidates, ctx)
		if chosen != "a" {
			t.Errorf("key2's first pick should be unaffected by key1's cursor, got %q", chosen)
		}
	})
}

func TestLeastConnectionsBalancer(t *testing.T) {
	t.Run("picks the lowest current count and increments it", func(t *testing.T) {
		state := newEmptyState()
		state.AlgorithmState["lb:conn:k:a"] = 3
		state.AlgorithmState["lb:conn:k:b"] = 1
		ctx := ExecutionContext{State: state}

		chosen, delta := leastConnectionsBalancer{}.SelectNode("k", []string{"a", "b"}, ctx)
		if chosen != "b" {
			t.Errorf("chosen = %q, want b (lowest count)", chosen)
		}
		if delta["lb:conn:k:b"] != 2 {
			t.Errorf("delta[lb:conn:k:b] = %v, want 2", delta["lb:conn:k:b"])
		}
	})

	t.Run("absent counts default to zero", func(t *testing.T) {
		ctx := ExecutionContext{State: newEmptyState()}
		chosen, delta := leastConnectionsBalancer{}.SelectNode("k", []string{"a", "b"}, ctx)
		if chosen != "a" {
			t.Errorf("chosen = %q, want a (first candidate, tie at zero)", chosen)
		}
		if delta["lb:conn:k:a"] != 1 {
			t.Errorf("delta[lb:conn:k:a] = %v, want 1", delta["lb:conn:k:a"])
		}
	})

	t.Run("no healthy candidates falls back to candidates[0]", func(t *testing.T) {
		state := newEmptyState()
		state.Nodes["a"] = NodeState{NodeID: "a", Status: StatusUnavailable}
		ctx := ExecutionContext{State: state}

		chosen, delta := leastConnectionsBalancer{}.SelectNode("k", []string{"a"}, ctx)
		if chosen != "a" || delta != nil {
			t.Errorf("got (%q, %v), want (\"a\", nil)", chosen, delta)
		}
	})
}

func TestWeightedBalancer(t *testing.T) {
	t.Run("no candidates returns empty", func(t *testing.T) {
		ctx := ExecutionContext{State: newEmptyState()}
		chosen, delta := weightedBalancer{}.SelectNode("k", nil, ctx)
		if chosen != "" || delta != nil {
			t.Errorf("got (%q, %v)", chosen, delta)
		}
	})

	t.Run("deterministic given the same algorithm_state", func(t *testing.T) {
		ctx := ExecutionContext{State: newEmptyState()}
		candidates := []string{"a", "b", "c"}

		chosen1, delta1 := weightedBalancer{}.SelectNode("k", candidates, ctx)
		chosen2, delta2 := weightedBalancer{}.SelectNode("k", candidates, ctx)

		if chosen1 != chosen2 {
			t.Errorf("two calls from the same state should pick the same node: %q vs %q", chosen1, chosen2)
		}
		if delta1["rng:weighted"] != delta2["rng:weighted"] {
			t.Error("two calls from the same state should advance the seed identically")
		}
	})

	t.Run("advancing the seed changes the next pick's determinism chain", func(t *testing.T) {
		ctx := ExecutionContext{State: newEmptyState()}
		candidates := []string{"a", "b", "c"}

		_, delta := weightedBalancer{}.SelectNode("k", candidates, ctx)
		advanced := ExecutionContext{State: newEmptyState()}
		advanced.State.AlgorithmState["rng:weighted"] = delta["rng:weighted"]

		_, delta2 := weightedBalancer{}.SelectNode("k", candidates, advanced)
		if delta2["rng:weighted"] == delta["rng:weighted"] {
			t.Error("advancing the seed should change on each call")
		}
	})

	t.Run("no healthy candidates falls back to candidates[0]", func(t *testing.T) {
		state := newEmptyState()
		state.Nodes["a"] = NodeState{NodeID: "a", Status: StatusUnavailable}
		ctx := ExecutionContext{State: state}

		chosen, delta := weightedBalancer{}.SelectNode("k", []string{"a"}, ctx)
		if chosen != "a" || delta != nil {
			t.Errorf("got (%q, %v), want (\"a\", nil)", chosen, delta)
		}
	})

	t.Run("a different rng:base_seed changes the first pick's seed chain", func(t *testing.T) {
		candidates := []string{"a", "b", "c"}

		stateOne := newEmptyState()
		stateOne.AlgorithmState["rng:base_seed"] = int64(1)
		_, deltaOne := weightedBalancer{}.SelectNode("k", candidates, ExecutionContext{State: stateOne})

		stateTwo := newEmptyState()
		stateTwo.AlgorithmState["rng:base_seed"] = int64(2)
		_, deltaTwo := weightedBalancer{}.SelectNode("k", candidates, ExecutionContext{State: stateTwo})

		if deltaOne["rng:weighted"] == deltaTwo["rng:weighted"] {
			t.Error("two different base seeds (as set by WithRNGSeed) should diverge the per-key seed chain")
		}
	})
}

func TestSeedFromStringAndAdvanceSeed(t *testing.T) {
	t.Run("seedFromString is deterministic", func(t *testing.T) {
		if seedFromString("x") != seedFromString("x") {
			t.Error("seedFromString should be a pure function of its input")
		}
		if seedFromString("x") == seedFromString("y") {
			t.Error("different inputs should (almost certainly) produce different seeds")
		}
	})

	t.Run("advanceSeed is deterministic and changes the value", func(t *testing.T) {
		seed := seedFromString("x")
		next := advanceSeed(seed)
		if next == seed {
			t.Error("advanceSeed should not return its input unchanged")
		}
		if advanceSeed(seed) != next {
			t.Error("advanceSeed should be a pure function of its input")
		}
	})
}
