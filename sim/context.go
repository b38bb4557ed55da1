package sim

// ExecutionContext is the read-only view handlers and strategies receive:
// the static graph, a snapshot of the current SimulationState, the current
// simulation time, and the scenario's token-flow configuration. Strategies
// and handlers are pure functions of (ExecutionContext, inputs) — any
// state that must persist across calls lives in
// ExecutionContext.State.AlgorithmState, never in the strategy/handler
// itself (spec.md §4.3).
type ExecutionContext struct {
	Graph           *Graph
	State           SimulationState
	NowMs           int64
	TokenFlowConfig *TokenFlowConfig

	// LoadBalancer is the scenario's configured load balancer strategy
	// (Scenario.Algorithms.LoadBalancer, resolved once at construction),
	// threaded through so the healthiest PathSelector can consult it
	// without strategies holding a Registry reference of their own.
	LoadBalancer LoadBalancer

	// PathSelector is the scenario's configured path selector
	// (Scenario.Algorithms.PathSelector, default "static"), resolved once
	// at construction and threaded through for handleRouteRequest.
	PathSelector PathSelector

	// FanOutStrategy is the scenario's configured fan-out strategy
	// (Scenario.Algorithms.FanOut, default "none").
	FanOutStrategy FanOutStrategy

	// FanOutConfig is the scenario's fan-out configuration, if any.
	FanOutConfig *FanOutConfig

	// RequestFlows is the scenario's named flow set, used by
	// handleRouteRequest to resolve a ScenarioEvent's FlowID/TargetID.
	RequestFlows []RequestFlow
}

// EdgeDuration returns the configured travel duration for source->target,
// preferring a per-edge override from TokenFlowConfig.EdgeTimings over the
// scenario's DefaultEdgeDurationMs.
func (ctx ExecutionContext) EdgeDuration(source, target string) int64 {
	if ctx.TokenFlowConfig != nil {
		for _, t := range ctx.TokenFlowConfig.EdgeTimings {
			if t.Source == source && t.Target == target {
				return t.DurationMs
			}
		}
		return ctx.TokenFlowConfig.DefaultEdgeDurationMs
	}
	return 0
}

// NodeKind returns the static kind tag of id, or "" if id is not in the
// graph.
func (ctx ExecutionContext) NodeKind(id string) string {
	for _, n := range ctx.Graph.Nodes {
		if n.ID == id {
			return n.Kind
		}
	}
	return ""
}

// OutgoingEdges returns every edge whose Source is id.
func (ctx ExecutionContext) OutgoingEdges(id string) []Edge {
	var out []Edge
	for _, e := range ctx.Graph.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// IncomingEdges returns every edge whose Target is id.
func (ctx ExecutionContext) IncomingEdges(id string) []Edge {
	var out []Edge
	for _, e := range ctx.Graph.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// IsAvailable reports whether node id is usable for routing, i.e. anything
// other than unavailable. Absence from ctx.State.Nodes is implicit
// available. A degraded node still reports available here: spec.md §3
// defines available/unavailable/degraded as three independent statuses,
// and every §4.3-§4.5 rule that truncates a path, fails a token, or gates
// fan-out keys off "unavailable" specifically, never "not fully healthy" —
// degraded nodes remain valid routing and fan-out targets.
func (ctx ExecutionContext) IsAvailable(id string) bool {
	n, ok := ctx.State.Nodes[id]
	if !ok {
		return true
	}
	return n.Status != StatusUnavailable
}
