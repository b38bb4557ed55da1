package sim

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"strconv"
)

// roundRobinBalancer filters to available candidates, selects
// healthy[index mod len(healthy)], and advances a per-key index stored in
// algorithm_state. If no candidate is available, returns candidates[0]
// (spec.md §4.3).
type roundRobinBalancer struct{}

func (roundRobinBalancer) SelectNode(key string, candidates []string, ctx ExecutionContext) (string, StateDelta) {
	if len(candidates) == 0 {
		return "", nil
	}
	healthy := filterAvailable(candidates, ctx)
	if len(healthy) == 0 {
		return candidates[0], nil
	}

	stateKey := "lb:rr:" + key
	idx, _ := ctx.State.AlgorithmState[stateKey].(int)
	chosen := healthy[idx%len(healthy)]
	return chosen, StateDelta{stateKey: idx + 1}
}

// leastConnectionsBalancer tracks a per-node selection count in
// algorithm_state and picks the minimum among available candidates,
// incrementing the winner's count (spec.md §4.3).
type leastConnectionsBalancer struct{}

func (leastConnectionsBalancer) SelectNode(key string, candidates []string, ctx ExecutionContext) (string, StateDelta) {
	if len(candidates) == 0 {
		return "", nil
	}
	healthy := filterAvailable(candidates, ctx)
	if len(healthy) == 0 {
		return candidates[0], nil
	}

	best := healthy[0]
	bestCount, _ := ctx.State.AlgorithmState[connCountKey(key, best)].(int)
	for _, cand := range healthy[1:] {
		count, _ := ctx.State.AlgorithmState[connCountKey(key, cand)].(int)
		if count < bestCount {
			best, bestCount = cand, count
		}
	}
	return best, StateDelta{connCountKey(key, best): bestCount + 1}
}

func connCountKey(key, node string) string {
	return "lb:conn:" + key + ":" + node
}

// weightedBalancer performs pseudo-random weighted selection over healthy
// candidates using a deterministic, seeded PRNG carried in
// algorithm_state rather than the global math/rand source — required by
// spec.md §4.3/§9 so that state-at-time-T stays seek-independent. The
// chain lives in the single algorithm_state["rng:weighted"] entry, shared
// by every key. When that entry is absent, the first call seeds it from
// algorithm_state["rng:base_seed"] (New's baseSeed, overridable via
// WithRNGSeed) mixed with that call's key, so two runners constructed with
// different WithRNGSeed values pick different sequences for the same
// scenario. Later calls, whatever their key, continue the same chain,
// advancing it by exactly one value per call.
type weightedBalancer struct{}

func (weightedBalancer) SelectNode(key string, candidates []string, ctx ExecutionContext) (string, StateDelta) {
	if len(candidates) == 0 {
		return "", nil
	}
	healthy := filterAvailable(candidates, ctx)
	if len(healthy) == 0 {
		return candidates[0], nil
	}

	weights := weightsFor(healthy, ctx)
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return healthy[0], nil
	}

	seed, ok := ctx.State.AlgorithmState["rng:weighted"].(int64)
	if !ok {
		base, _ := ctx.State.AlgorithmState["rng:base_seed"].(int64)
		seed = seedFromString("weighted:" + strconv.FormatInt(base, 10) + ":" + key)
	}
	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- deterministic, replay-seeded
	pick := rng.Intn(total)

	chosen := healthy[len(healthy)-1]
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if pick < cumulative {
			chosen = healthy[i]
			break
		}
	}

	nextSeed := advanceSeed(seed)
	return chosen, StateDelta{"rng:weighted": nextSeed}
}

// weightsFor reads per-node weight overrides from
// algorithm_state["lb:weight:"+node] (default 1 when absent).
func weightsFor(nodes []string, ctx ExecutionContext) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		w, ok := ctx.State.AlgorithmState["lb:weight:"+n].(int)
		if !ok || w <= 0 {
			w = 1
		}
		out[i] = w
	}
	return out
}

func filterAvailable(candidates []string, ctx ExecutionContext) []string {
	var out []string
	for _, c := range candidates {
		if ctx.IsAvailable(c) {
			out = append(out, c)
		}
	}
	return out
}

// seedFromString derives a deterministic int64 seed from s by SHA-256
// hashing it and reading the first 8 bytes big-endian, exactly the
// technique the teacher's initRNG uses to seed a run's RNG from its runID
// (graph/engine.go).
func seedFromString(s string) int64 {
	h := sha256.Sum256([]byte(s))
	return int64(binary.BigEndian.Uint64(h[:8])) // #nosec G115 -- deterministic seeding, not security
}

// advanceSeed derives the next seed in a deterministic chain so repeated
// weighted selections within one ScenarioRunner diverge from call to call
// while remaining fully reproducible from the original seed.
func advanceSeed(seed int64) int64 {
	h := sha256.Sum256(binary.BigEndian.AppendUint64(nil, uint64(seed)))
	return int64(binary.BigEndian.Uint64(h[:8])) // #nosec G115 -- deterministic seeding, not security
}
