package sim

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/boris-p/infrasim/sim/emit"
)

// cleanupDelayMs is how long a token lingers in the tokens slice after
// reaching a terminal status before the advance_tokens sweep removes it
// (spec.md §4.5) — long enough for a UI consumer to render the terminal
// frame at least once.
const cleanupDelayMs int64 = 800

// ScenarioRunner is the simulation kernel: it owns the Store, the three
// slice managers, the strategy Registry, and the event-processing loop
// that implements seek_to/advance_to (spec.md §4.5). Mirrors the
// teacher's Engine[S] (graph/engine.go) as the single stateful object a
// caller drives — here specialized to exactly one SimulationState shape
// rather than parameterized over a generic reducer.
//
// ScenarioRunner is safe for concurrent use: mu serializes every exported
// method that touches the store (Duration reads only the immutable
// scenario), the same way the teacher's Engine guards nodes/edges
// with its own mutex.
type ScenarioRunner struct {
	mu sync.Mutex

	scenario *Scenario
	graph    *Graph

	store      *Store
	tokens     *TokenManager
	nodes      *NodeManager
	waitPoints *WaitPointManager
	registry   *Registry

	pathSelector   PathSelector
	loadBalancer   LoadBalancer
	fanOutStrategy FanOutStrategy
	failover       FailoverStrategy
	consensus      Consensus
	fanOutConfig   *FanOutConfig

	emitter emit.Emitter
	metrics *RunnerMetrics

	maxAdvanceIterations int
	baseSeed             int64

	nextTokenSeq int
}

// New constructs a ScenarioRunner for scenario against graph. opts may
// contain any mix of Options and Option values, applied in order — later
// entries override earlier ones (see options.go). Returns a *SimError
// (class-1, spec.md §7) if graph fails ValidateGraph or scenario names an
// unregistered strategy id.
func New(scenario *Scenario, graph *Graph, opts ...interface{}) (*ScenarioRunner, error) {
	if err := ValidateGraph(graph); err != nil {
		return nil, err
	}

	cfg := newRunnerConfig()
	cfg.apply(opts)

	algos := scenario.Algorithms
	if algos == nil {
		algos = &AlgorithmConfig{}
	}

	pathSelectorID := algos.PathSelector
	if pathSelectorID == "" {
		pathSelectorID = "static"
	}
	pathSelector, ok := cfg.registry.GetPathSelector(pathSelectorID)
	if !ok {
		return nil, &SimError{Message: "unknown path selector id: " + pathSelectorID, Code: "UNKNOWN_STRATEGY"}
	}

	loadBalancerID := algos.LoadBalancer
	if loadBalancerID == "" {
		loadBalancerID = "round-robin"
	}
	loadBalancer, ok := cfg.registry.GetLoadBalancer(loadBalancerID)
	if !ok {
		return nil, &SimError{Message: "unknown load balancer id: " + loadBalancerID, Code: "UNKNOWN_STRATEGY"}
	}

	fanOutID := algos.FanOut
	if fanOutID == "" {
		fanOutID = "none"
	}
	fanOutStrategy, ok := cfg.registry.GetFanOutStrategy(fanOutID)
	if !ok {
		return nil, &SimError{Message: "unknown fan-out strategy id: " + fanOutID, Code: "UNKNOWN_STRATEGY"}
	}

	failoverID := algos.Failover
	if failoverID == "" {
		failoverID = "default"
	}
	failover, ok := cfg.registry.GetFailoverStrategy(failoverID)
	if !ok {
		return nil, &SimError{Message: "unknown failover strategy id: " + failoverID, Code: "UNKNOWN_STRATEGY"}
	}

	consensusID := algos.Consensus
	if consensusID == "" {
		consensusID = "majority-quorum"
	}
	consensus, ok := cfg.registry.GetConsensus(consensusID)
	if !ok {
		return nil, &SimError{Message: "unknown consensus id: " + consensusID, Code: "UNKNOWN_STRATEGY"}
	}

	baseSeed := cfg.rngSeed
	if !cfg.rngSeedSet {
		baseSeed = seedFromString(scenario.ID)
	}

	initial := newEmptyState()
	initial.AlgorithmState["rng:base_seed"] = baseSeed
	store := NewStore(initial)

	r := &ScenarioRunner{
		scenario:             scenario,
		graph:                graph,
		store:                store,
		tokens:               NewTokenManager(store),
		nodes:                NewNodeManager(store),
		waitPoints:           NewWaitPointManager(store),
		registry:             cfg.registry,
		pathSelector:         pathSelector,
		loadBalancer:         loadBalancer,
		fanOutStrategy:       fanOutStrategy,
		failover:             failover,
		consensus:            consensus,
		fanOutConfig:         algos.FanOutConfig,
		emitter:              cfg.emitter,
		metrics:              cfg.metrics,
		maxAdvanceIterations: cfg.maxAdvanceIterations,
		baseSeed:             baseSeed,
	}

	if scenario.TokenFlowConfig != nil {
		r.waitPoints.Setup(scenario.TokenFlowConfig.WaitPoints)
	}
	r.store.Checkpoint(0)
	r.metrics.setCheckpointCount(1)

	return r, nil
}

// buildContext assembles the pure-function ExecutionContext strategies and
// handlers receive, from the runner's current state at time now.
func (r *ScenarioRunner) buildContext(now int64) ExecutionContext {
	return ExecutionContext{
		Graph:           r.graph,
		State:           r.store.GetState(),
		NowMs:           now,
		TokenFlowConfig: r.scenario.TokenFlowConfig,
		LoadBalancer:    r.loadBalancer,
		PathSelector:    r.pathSelector,
		FanOutStrategy:  r.fanOutStrategy,
		FanOutConfig:    r.fanOutConfig,
		RequestFlows:    r.scenario.RequestFlows,
	}
}

// CurrentTime returns the runner's current simulation clock.
func (r *ScenarioRunner) CurrentTime() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.GetState().TimeMs
}

// Duration returns the scenario's configured total duration.
func (r *ScenarioRunner) Duration() int64 {
	return r.scenario.DurationMs
}

// NodeState returns the current NodeState for id, or the implicit
// available default if id has never been touched.
func (r *ScenarioRunner) NodeState(id string) NodeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes.Get(id)
	if !ok {
		return NodeState{NodeID: id, Status: StatusAvailable}
	}
	return n
}

// ActiveFlowID returns the id of the most recently routed RequestFlow, or
// "" if none has been routed yet at the current time.
func (r *ScenarioRunner) ActiveFlowID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, _ := r.store.GetState().AlgorithmState["runner:active_flow_id"].(string)
	return v
}

// CanRead reports whether availableNodes satisfies the scenario's
// configured Consensus predicate for reads (spec.md §4.3). Exposed for
// scenario-authored admission checks; the core token flow does not gate
// on it directly.
func (r *ScenarioRunner) CanRead(availableNodes int, q ConsensusQuorum) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.consensus.CanRead(availableNodes, q)
}

// CanWrite is CanRead's write-path sibling.
func (r *ScenarioRunner) CanWrite(availableNodes int, q ConsensusQuorum) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.consensus.CanWrite(availableNodes, q)
}

// ComputeFailover exposes the scenario's configured FailoverStrategy
// directly, for composite strategies that need an alternative path
// outside the static PathSelector's self-contained failover (spec.md
// §4.3; see defaultFailover's doc comment in strategy_failover.go).
func (r *ScenarioRunner) ComputeFailover(primaryPath []string, failedNodeID string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx := r.buildContext(r.store.GetState().TimeMs)
	return r.failover.ComputeFailover(primaryPath, failedNodeID, ctx)
}

// GetSnapshot returns the full Snapshot at the runner's current time,
// without advancing anything.
func (r *ScenarioRunner) GetSnapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *ScenarioRunner) snapshotLocked() Snapshot {
	activeFlowID, _ := r.store.GetState().AlgorithmState["runner:active_flow_id"].(string)
	return buildSnapshot(r.store.GetState(), activeFlowID)
}

// Reset restores the store's initial (empty) SimulationState at time 0,
// with no checkpoints but the one at t=0. The wait points New installed
// are not part of that initial state, so Reset removes them along with
// their queues and does not re-apply the scenario's wait-point config.
func (r *ScenarioRunner) Reset() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.ClearCheckpoints()
	r.store.RestoreTo(-1) // restores to the initial state per Store.RestoreTo's empty-log contract
	r.waitPoints.ResetQueue()
	r.store.Checkpoint(0)
	r.nextTokenSeq = 0
	r.metrics.setCheckpointCount(1)
	r.metrics.setTokensInflight(0)
	return r.snapshotLocked()
}

// SeekTo restores the state nearest to (and not after) targetMs from the
// checkpoint log, replays every event with TimestampMs in
// (restored_time, targetMs] not already in ProcessedEventIDs, then runs
// advance_tokens up to targetMs (spec.md §4.5). Unlike AdvanceTo, SeekTo
// can move the clock backwards.
func (r *ScenarioRunner) SeekTo(targetMs int64) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := time.Now()
	defer func() { r.metrics.observeSeekDuration(time.Since(start)) }()

	restored := r.store.RestoreTo(targetMs)
	r.store.TruncateCheckpointsAfter(restored)
	r.recomputeNextTokenSeq()
	r.replayEvents(restored, targetMs)
	r.store.SetTimeMs(targetMs)
	r.advanceTokens(targetMs)
	r.store.Checkpoint(targetMs)
	r.metrics.setCheckpointCount(len(r.store.checkpoints))

	return r.snapshotLocked()
}

// AdvanceTo is SeekTo's forward-only sibling: it replays events strictly
// after the runner's current time and up to targetMs, without touching
// the checkpoint log's restore path. Behaviorally equivalent to SeekTo
// when targetMs >= CurrentTime(), offered separately so callers driving a
// live playhead forward don't pay SeekTo's binary-search restore cost.
func (r *ScenarioRunner) AdvanceTo(targetMs int64) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := time.Now()
	defer func() { r.metrics.observeSeekDuration(time.Since(start)) }()

	from := r.store.GetState().TimeMs
	r.replayEvents(from, targetMs)
	r.store.SetTimeMs(targetMs)
	r.advanceTokens(targetMs)
	r.store.Checkpoint(targetMs)
	r.metrics.setCheckpointCount(len(r.store.checkpoints))

	return r.snapshotLocked()
}

// replayEvents applies every ScenarioEvent with fromMs < TimestampMs <=
// toMs, in (TimestampMs, ID) order, skipping ids already in
// ProcessedEventIDs. fromMs is exclusive so SeekTo never double-applies
// the event recorded at a restored checkpoint's own timestamp.
func (r *ScenarioRunner) replayEvents(fromMs, toMs int64) {
	events := make([]ScenarioEvent, 0, len(r.scenario.Events))
	for _, e := range r.scenario.Events {
		if e.TimestampMs > fromMs && e.TimestampMs <= toMs {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].TimestampMs != events[j].TimestampMs {
			return events[i].TimestampMs < events[j].TimestampMs
		}
		return events[i].ID < events[j].ID
	})

	for _, e := range events {
		if _, done := r.store.GetState().ProcessedEventIDs[e.ID]; done {
			continue
		}
		r.applyEvent(e)
		r.store.UpdateProcessedEventIDs(func(cur map[string]struct{}) map[string]struct{} {
			next := cloneEventIDs(cur)
			next[e.ID] = struct{}{}
			return next
		})
		r.store.Checkpoint(e.TimestampMs)
		r.metrics.incrementEventsProcessed()
	}
}

// applyEvent dispatches event to its EventHandler and applies the result
// through the node manager and algorithm_state (spec.md §4.4). An action
// with no registered handler is a class-2 logic anomaly (spec.md §7): it
// is emitted as a diagnostic event and otherwise ignored, never fatal.
func (r *ScenarioRunner) applyEvent(e ScenarioEvent) {
	handler := defaultHandlerFor(e.Action)
	if handler == nil {
		r.emit(e.TimestampMs, "unknown_event_action", map[string]interface{}{"event_id": e.ID, "action": e.Action})
		return
	}

	ctx := r.buildContext(e.TimestampMs)
	result := handler(e, ctx)

	for _, change := range result.NodeChanges {
		r.nodes.Update(change.NodeID, e.TimestampMs, change.Apply)
	}

	if e.Action == "fail" {
		r.failTokensAndDrainQueue(e.TargetID, e.TimestampMs)
	}

	if result.ActiveFlowID != "" {
		r.store.UpdateAlgorithmState(func(cur map[string]interface{}) map[string]interface{} {
			next := cloneAlgorithmState(cur)
			next["runner:active_flow_id"] = result.ActiveFlowID
			return next
		})
	}

	if len(result.StateDelta) > 0 {
		r.store.UpdateAlgorithmState(func(cur map[string]interface{}) map[string]interface{} {
			next := cloneAlgorithmState(cur)
			for k, v := range result.StateDelta {
				next[k] = v
			}
			return next
		})
	}

	if result.Diagnostic != "" {
		r.emit(e.TimestampMs, result.Diagnostic, map[string]interface{}{"event_id": e.ID})
	}

	if e.Action == "route-request" && len(result.ComputedPath) >= 2 {
		r.emitToken(result.ComputedPath, e.TimestampMs)
	} else if e.Action == "route-request" {
		r.emit(e.TimestampMs, "route_request_path_too_short", map[string]interface{}{"event_id": e.ID, "path_len": len(result.ComputedPath)})
	}
}

// emitToken creates a fresh root token traveling path, starting at
// startMs, and adds it through the TokenManager.
func (r *ScenarioRunner) emitToken(path []string, startMs int64) Token {
	id := r.nextTokenID()
	token := Token{
		ID:                      id,
		TypeID:                  r.defaultTokenTypeID(),
		Path:                    path,
		CurrentEdgeIndex:        0,
		Status:                  TokenTraveling,
		EmittedAtMs:             startMs,
		CurrentSegmentStartMs:   startMs,
		CurrentSegmentDurationMs: r.edgeDuration(path[0], path[1]),
		Progress:                0,
	}
	if err := r.tokens.Add(token); err != nil {
		// id collision can only happen if recomputeNextTokenSeq under- or
		// over-counted after a seek; retry once with a fresh id.
		token.ID = r.nextTokenID()
		_ = r.tokens.Add(token)
	}
	r.emit(startMs, "token_emitted", map[string]interface{}{"token_id": token.ID, "path_len": len(path)})
	return token
}

func (r *ScenarioRunner) defaultTokenTypeID() string {
	if r.scenario.TokenFlowConfig != nil && len(r.scenario.TokenFlowConfig.TokenTypes) > 0 {
		return r.scenario.TokenFlowConfig.TokenTypes[0].ID
	}
	return "http-request"
}

func (r *ScenarioRunner) edgeDuration(source, target string) int64 {
	return r.buildContext(0).EdgeDuration(source, target)
}

const tokenIDPrefix = "token-"

func (r *ScenarioRunner) nextTokenID() string {
	r.nextTokenSeq++
	return tokenIDPrefix + strconv.Itoa(r.nextTokenSeq)
}

// recomputeNextTokenSeq restores the token-id counter from the max
// existing numeric suffix after a seek — required so ids stay stable and
// collision-free regardless of how many times a caller seeks around in
// time (spec.md §4.5: "recompute next_token_id from max existing id + 1").
func (r *ScenarioRunner) recomputeNextTokenSeq() {
	maxSeq := 0
	for id := range r.store.GetState().Tokens {
		if !strings.HasPrefix(id, tokenIDPrefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(id, tokenIDPrefix)); err == nil && n > maxSeq {
			maxSeq = n
		}
	}
	r.nextTokenSeq = maxSeq
}

func (r *ScenarioRunner) emit(atMs int64, msg string, meta map[string]interface{}) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(emit.Event{
		RunID:  r.scenario.ID,
		Step:   0,
		NodeID: "",
		Msg:    msg,
		Meta:   meta,
	})
}

// advanceTokens is the fixed-point loop described in spec.md §4.5: at
// time t, repeatedly (1) advance every traveling token along its current
// edge (possibly moving it into its next segment, a wait point, or a
// terminal status), (2) release eligible wait-point queues, (3) check
// fan-out quorums for waiting parent tokens, until a full pass changes
// nothing or maxAdvanceIterations is hit — then sweep terminal tokens
// older than cleanupDelayMs.
func (r *ScenarioRunner) advanceTokens(t int64) {
	iterations := 0
	for ; iterations < r.maxAdvanceIterations; iterations++ {
		before := r.stateFingerprint()

		r.advanceTravelingTokens(t)
		r.releaseWaitPoints(t)
		r.checkFanOutQuorums(t)

		if r.stateFingerprint() == before {
			break
		}
	}
	passes := iterations + 1
	if iterations >= r.maxAdvanceIterations {
		r.emit(t, "advance_loop_exhausted", map[string]interface{}{"iterations": iterations, "error": ErrAdvanceLoopExhausted.Error()})
		passes = iterations
	}
	r.metrics.observeAdvanceLoopIterations(passes)

	r.cleanupTerminalTokens(t)
	r.metrics.setTokensInflight(len(r.tokens.Active()))
}

// stateFingerprint is a cheap settle-detection signal: the map identities
// of the tokens and wait_points slices. Either changing means the loop
// made progress this pass; both staying put means the state has reached a
// fixed point for time t.
func (r *ScenarioRunner) stateFingerprint() [2]uintptr {
	s := r.store.GetState()
	return [2]uintptr{mapIdentity(s.Tokens), mapIdentity(s.WaitPoints)}
}

func (r *ScenarioRunner) advanceTravelingTokens(t int64) {
	for _, token := range r.tokens.ByStatus(TokenTraveling) {
		updated := r.advanceToken(token, t)
		r.tokens.Update(token.ID, func(Token) Token { return updated })
	}
}

// advanceToken repeatedly calls moveToNextSegment on token while its
// current edge's travel time has fully elapsed and it is still traveling,
// so a single advance_tokens pass can cross several short edges in one
// call (spec.md §4.5).
func (r *ScenarioRunner) advanceToken(token Token, t int64) Token {
	for token.Status == TokenTraveling {
		duration := token.CurrentSegmentDurationMs
		if duration <= 0 {
			token = r.moveToNextSegment(token, token.CurrentSegmentStartMs)
			continue
		}
		elapsed := t - token.CurrentSegmentStartMs
		if elapsed < duration {
			progress := float64(elapsed) / float64(duration)
			if progress < 0 {
				progress = 0
			}
			token.Progress = progress
			return token
		}
		token = r.moveToNextSegment(token, token.CurrentSegmentStartMs+duration)
	}
	return token
}

// moveToNextSegment advances token past the node at the end of its
// current edge, arriving at simulation time arriveMs (spec.md §4.5):
//
//  1. If the next node is beyond the end of path, the token has reached
//     its destination: fan out (if a FanOutStrategy applies), complete,
//     or fail if the destination itself is unavailable.
//  2. Otherwise the token has arrived at an intermediate node n:
//     unavailable -> failed (no look-ahead, last successful edge stays
//     recorded in current_edge_index); a configured wait point at n ->
//     waiting (current_edge_index is left pointing at the edge just
//     traversed, so release can resume from path[current_edge_index+1]);
//     otherwise -> start the next edge immediately.
func (r *ScenarioRunner) moveToNextSegment(token Token, arriveMs int64) Token {
	ctx := r.buildContext(arriveMs)
	nextIdx := token.CurrentEdgeIndex + 1

	if nextIdx >= len(token.Path)-1 {
		final := token.Path[len(token.Path)-1]
		return r.arriveAtFinalNode(token, final, arriveMs, ctx)
	}

	n := token.Path[nextIdx]

	if !ctx.IsAvailable(n) {
		token.Status = TokenFailed
		token.Progress = 1
		token.CompletedAtMs = arriveMs
		r.metrics.incrementTokenOutcome(TokenFailed)
		r.emit(arriveMs, "token_failed", map[string]interface{}{"token_id": token.ID, "node_id": n})
		return token
	}

	if _, ok := r.waitPoints.Get(n); ok {
		position := r.waitPoints.Enqueue(n, token.ID)
		token.Status = TokenWaiting
		token.WaitingAtNode = n
		token.WaitPosition = position
		token.Progress = 0
		token.CurrentSegmentStartMs = arriveMs
		r.emit(arriveMs, "token_queued", map[string]interface{}{"token_id": token.ID, "node_id": n, "wait_position": position})
		return token
	}

	token.CurrentEdgeIndex = nextIdx
	token.CurrentSegmentStartMs = arriveMs
	token.CurrentSegmentDurationMs = ctx.EdgeDuration(n, token.Path[nextIdx+1])
	token.Progress = 0
	token.Status = TokenTraveling
	return token
}

// arriveAtFinalNode implements step 1 of moveToNextSegment's doc comment.
func (r *ScenarioRunner) arriveAtFinalNode(token Token, final string, arriveMs int64, ctx ExecutionContext) Token {
	if !ctx.IsAvailable(final) {
		token.Status = TokenFailed
		token.Progress = 1
		token.CompletedAtMs = arriveMs
		r.metrics.incrementTokenOutcome(TokenFailed)
		r.emit(arriveMs, "token_failed", map[string]interface{}{"token_id": token.ID, "node_id": final})
		return token
	}

	result := r.fanOutStrategy.ComputeFanOut(final, ctx, r.fanOutConfig)
	if !result.ShouldFanOut {
		token.Status = TokenCompleted
		token.Progress = 1
		token.CompletedAtMs = arriveMs
		r.metrics.incrementTokenOutcome(TokenCompleted)
		r.emit(arriveMs, "token_completed", map[string]interface{}{"token_id": token.ID, "node_id": final})
		// "Else if the token has a parent, check that parent's quorum"
		// (spec.md §4.5): this may be the last outstanding child a
		// waiting parent needed, so resolve it now instead of waiting for
		// the next checkFanOutQuorums pass. Persist this token's own
		// completion first — checkQuorumFor counts children by reading
		// them back from the store, and this token is one of them.
		if token.ParentTokenID != "" {
			completedToken := token
			r.tokens.Update(token.ID, func(Token) Token { return completedToken })
			if parent, ok := r.tokens.Get(token.ParentTokenID); ok && parent.Status == TokenWaiting {
				r.checkQuorumFor(parent, arriveMs)
			}
		}
		return token
	}

	childType := token.TypeID
	if r.fanOutConfig != nil && r.fanOutConfig.ChildTypeID != "" {
		childType = r.fanOutConfig.ChildTypeID
	}

	childIDs := make([]string, 0, len(result.ChildPaths))
	for _, childPath := range result.ChildPaths {
		child := Token{
			ID:                      r.nextTokenID(),
			TypeID:                  childType,
			Path:                    childPath,
			CurrentEdgeIndex:        0,
			ParentTokenID:           token.ID,
			EmittedAtMs:             arriveMs,
			CurrentSegmentStartMs:   arriveMs,
			Status:                  TokenTraveling,
		}
		if len(childPath) >= 2 && ctx.IsAvailable(childPath[1]) {
			child.CurrentSegmentDurationMs = ctx.EdgeDuration(childPath[0], childPath[1])
		} else {
			child.Status = TokenFailed
			child.Progress = 1
			child.CompletedAtMs = arriveMs
			r.metrics.incrementTokenOutcome(TokenFailed)
		}
		_ = r.tokens.Add(child)
		childIDs = append(childIDs, child.ID)
	}

	token.Status = TokenWaiting
	token.WaitingAtNode = final
	token.ChildTokenIDs = childIDs
	token.Progress = 1
	token.CurrentSegmentStartMs = arriveMs

	r.store.UpdateAlgorithmState(func(cur map[string]interface{}) map[string]interface{} {
		next := cloneAlgorithmState(cur)
		next["quorum:"+token.ID] = result.QuorumRequired
		return next
	})
	r.emit(arriveMs, "fanout_started", map[string]interface{}{"token_id": token.ID, "node_id": final, "children": len(childIDs), "quorum_required": result.QuorumRequired})

	// "Immediately run quorum check" (spec.md §4.5) — children born failed
	// (unavailable next hop) can resolve the parent before the outer
	// advance_tokens loop gets back around to checkFanOutQuorums.
	if status, resolved := r.quorumOutcome(childIDs, result.QuorumRequired); resolved {
		token.Status = status
		token.CompletedAtMs = arriveMs
		r.metrics.incrementTokenOutcome(status)
	}

	return token
}

// quorumOutcome evaluates the quorum rule (spec.md §4.5) over childIDs'
// current statuses: resolved=true once enough have completed to meet
// required, or too many have failed for required to still be reachable.
func (r *ScenarioRunner) quorumOutcome(childIDs []string, required int) (status TokenStatus, resolved bool) {
	completed, failed := 0, 0
	for _, cid := range childIDs {
		child, ok := r.tokens.Get(cid)
		if !ok {
			continue
		}
		switch child.Status {
		case TokenCompleted:
			completed++
		case TokenFailed:
			failed++
		}
	}
	total := len(childIDs)
	switch {
	case completed >= required:
		return TokenCompleted, true
	case total-failed < required:
		return TokenFailed, true
	default:
		return "", false
	}
}

// releaseWaitPoints dequeues every wait point eligible to release at time
// t, one token per configured interval elapsed, and starts that token on
// its next edge (spec.md §4.5). Each release happens at
// LastProcessedMs+ProcessIntervalMs, or at the token's arrival if that is
// later. The outer fixed-point loop re-enters this function while
// CanRelease keeps reporting true, so a queue that has fallen several
// intervals behind catches up within one advance_tokens call. Every
// strategy, "batch" included, releases one token per interval.
func (r *ScenarioRunner) releaseWaitPoints(t int64) {
	state := r.store.GetState()
	nodeIDs := make([]string, 0, len(state.WaitPoints))
	for id := range state.WaitPoints {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	for _, node := range nodeIDs {
		if !r.waitPoints.CanRelease(node, t) {
			continue
		}
		wp, _ := r.waitPoints.Get(node)
		releaseMs := wp.LastProcessedMs + wp.ProcessIntervalMs
		if head, ok := r.tokens.Get(nextToDequeue(wp, nil)); ok && head.CurrentSegmentStartMs > releaseMs {
			releaseMs = head.CurrentSegmentStartMs
		}
		released := r.waitPoints.Dequeue(node, releaseMs, nil)
		if released == "" {
			continue
		}
		r.startReleasedToken(released, node, releaseMs)
		r.reindexWaiters(node)
	}
}

func (r *ScenarioRunner) startReleasedToken(tokenID, node string, releaseMs int64) {
	token, ok := r.tokens.Get(tokenID)
	if !ok {
		return
	}
	ctx := r.buildContext(releaseMs)
	nextIdx := token.CurrentEdgeIndex + 1

	updated := token
	updated.Status = TokenTraveling
	updated.WaitingAtNode = ""
	updated.WaitPosition = 0
	updated.CurrentEdgeIndex = nextIdx
	updated.CurrentSegmentStartMs = releaseMs
	updated.Progress = 0
	if nextIdx+1 < len(token.Path) {
		updated.CurrentSegmentDurationMs = ctx.EdgeDuration(token.Path[nextIdx], token.Path[nextIdx+1])
	}
	r.tokens.Update(tokenID, func(Token) Token { return updated })
	r.emit(releaseMs, "token_released", map[string]interface{}{"token_id": tokenID, "node_id": node})
}

// failTokensAndDrainQueue fails every token waiting at or traveling into
// n, then removes the now-failed ones from n's wait-point queue (if any)
// and renumbers the survivors — TokenManager.FailTokensAtNode only flips
// status, it has no WaitPointManager reference to keep the queue
// consistent.
func (r *ScenarioRunner) failTokensAndDrainQueue(n string, nowMs int64) {
	waiting := r.tokens.WaitingAt(n)
	r.tokens.FailTokensAtNode(n, nowMs)
	for _, tok := range waiting {
		r.waitPoints.RemoveToken(tok.ID)
	}
	r.reindexWaiters(n)
}

func (r *ScenarioRunner) reindexWaiters(node string) {
	wp, ok := r.waitPoints.Get(node)
	if !ok {
		return
	}
	for i, id := range wp.TokenIDs {
		r.tokens.Update(id, func(tok Token) Token {
			tok.WaitPosition = i
			return tok
		})
	}
}

// checkFanOutQuorums evaluates ConsensusQuorum-free, direct quorum
// counting for every waiting token with children (spec.md §4.3/§4.5): a
// parent completes once enough children have completed to reach its
// recorded quorum, or fails once too many have failed for the quorum to
// still be reachable.
func (r *ScenarioRunner) checkFanOutQuorums(nowMs int64) {
	for _, parent := range r.tokens.ByStatus(TokenWaiting) {
		if len(parent.ChildTokenIDs) == 0 {
			continue
		}
		r.checkQuorumFor(parent, nowMs)
	}
}

func (r *ScenarioRunner) checkQuorumFor(parent Token, nowMs int64) {
	required := len(parent.ChildTokenIDs)
	if v, ok := r.store.GetState().AlgorithmState["quorum:"+parent.ID].(int); ok {
		required = v
	}

	status, resolved := r.quorumOutcome(parent.ChildTokenIDs, required)
	if !resolved {
		return
	}

	r.tokens.Update(parent.ID, func(tok Token) Token {
		tok.Status = status
		tok.Progress = 1
		tok.CompletedAtMs = nowMs
		return tok
	})
	r.metrics.incrementTokenOutcome(status)
	if status == TokenCompleted {
		r.emit(nowMs, "fanout_quorum_met", map[string]interface{}{"token_id": parent.ID, "required": required})
	} else {
		r.emit(nowMs, "fanout_quorum_unreachable", map[string]interface{}{"token_id": parent.ID, "required": required})
	}
}

// cleanupTerminalTokens removes every token whose CompletedAtMs is more
// than cleanupDelayMs behind t, per spec.md §4.5's post-terminal sweep.
func (r *ScenarioRunner) cleanupTerminalTokens(t int64) {
	for _, tok := range r.tokens.GetAll() {
		if !tok.IsTerminal() {
			continue
		}
		if t-tok.CompletedAtMs > cleanupDelayMs {
			r.waitPoints.RemoveToken(tok.ID)
			r.tokens.Remove(tok.ID)
		}
	}
}
