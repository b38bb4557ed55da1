package sim

// NodeChange is one per-node partial update an EventHandler asks the
// runner to apply via NodeManager.Update.
type NodeChange struct {
	NodeID string
	Apply  func(NodeState) NodeState
}

// EventResult is what an EventHandler returns: any node-state changes, the
// active flow id (if the event concerns one), and — for route-request —
// the computed path a token should be emitted along. Diagnostic carries a
// class-2 logic-anomaly message (spec.md §7) when the event referenced
// something the handler could not resolve; it is never fatal.
type EventResult struct {
	NodeChanges  []NodeChange
	ActiveFlowID string
	ComputedPath []string
	Diagnostic   string

	// StateDelta carries algorithm-state writes a strategy produced as a
	// side effect of computing this result (e.g. the load balancer's
	// round-robin cursor, consulted by the "healthiest" path selector).
	// The runner merges it into AlgorithmState via Store.UpdateAlgorithmState
	// (spec.md §4.3's StateDelta contract — see registry.go).
	StateDelta StateDelta
}

// EventHandler is a pure function over (event, ctx); the runner applies
// the returned deltas through the managers (spec.md §4.4). All handlers
// are pure with respect to their inputs plus ctx.
type EventHandler func(event ScenarioEvent, ctx ExecutionContext) EventResult

// defaultHandlerFor returns the built-in handler for action, or nil if
// action is not one of the five recognized actions (a class-2 logic
// anomaly — spec.md §7 — handled by the runner, not this function).
func defaultHandlerFor(action string) EventHandler {
	switch action {
	case "fail":
		return handleFail
	case "recover":
		return handleRecover
	case "degrade":
		return handleDegrade
	case "promote":
		return handlePromote
	case "route-request":
		return handleRouteRequest
	default:
		return nil
	}
}

func defaultSublabelFor(targetKind string) string {
	switch targetKind {
	case "db-primary", "db-standby":
		return "Database unavailable"
	case "alb":
		return "Load balancer unavailable"
	default:
		return "Unavailable"
	}
}

// handleFail sets status=unavailable and a sublabel (spec.md §4.4).
func handleFail(event ScenarioEvent, ctx ExecutionContext) EventResult {
	sublabel := event.FailureMessage
	if sublabel == "" {
		sublabel = defaultSublabelFor(event.TargetKind)
	}
	return EventResult{
		NodeChanges: []NodeChange{{
			NodeID: event.TargetID,
			Apply: func(n NodeState) NodeState {
				n.Status = StatusUnavailable
				n.Sublabel = sublabel
				n.LastStateChangeMs = event.TimestampMs
				return n
			},
		}},
	}
}

// handleRecover sets status=available and clears sublabel.
func handleRecover(event ScenarioEvent, ctx ExecutionContext) EventResult {
	return EventResult{
		NodeChanges: []NodeChange{{
			NodeID: event.TargetID,
			Apply: func(n NodeState) NodeState {
				n.Status = StatusAvailable
				n.Sublabel = ""
				n.LastStateChangeMs = event.TimestampMs
				return n
			},
		}},
	}
}

// handleDegrade sets status=degraded and a sublabel.
func handleDegrade(event ScenarioEvent, ctx ExecutionContext) EventResult {
	sublabel := event.FailureMessage
	if sublabel == "" {
		sublabel = "Degraded"
	}
	return EventResult{
		NodeChanges: []NodeChange{{
			NodeID: event.TargetID,
			Apply: func(n NodeState) NodeState {
				n.Status = StatusDegraded
				n.Sublabel = sublabel
				n.LastStateChangeMs = event.TimestampMs
				return n
			},
		}},
	}
}

// handlePromote sets target.metadata.role, demoting every other node that
// currently holds the same role value; promoting to "primary" demotes
// prior holders to "standby" and clears their sublabel, while the target
// gets sublabel "Primary" (spec.md §4.4; role uniqueness invariant, §3).
func handlePromote(event ScenarioEvent, ctx ExecutionContext) EventResult {
	newRole := event.PromotionRole
	if newRole == "" {
		newRole = "primary"
	}

	changes := []NodeChange{{
		NodeID: event.TargetID,
		Apply: func(n NodeState) NodeState {
			n.Status = StatusAvailable
			if n.Metadata == nil {
				n.Metadata = map[string]string{}
			} else {
				n.Metadata = cloneStringMap(n.Metadata)
			}
			n.Metadata["role"] = newRole
			if newRole == "primary" {
				n.Sublabel = "Primary"
			} else {
				n.Sublabel = ""
			}
			n.LastStateChangeMs = event.TimestampMs
			return n
		},
	}}

	if newRole == "primary" {
		for id, n := range ctx.State.Nodes {
			if id == event.TargetID || n.Metadata == nil || n.Metadata["role"] != "primary" {
				continue
			}
			changes = append(changes, NodeChange{
				NodeID: id,
				Apply: func(n NodeState) NodeState {
					n.Metadata = cloneStringMap(n.Metadata)
					n.Metadata["role"] = "standby"
					n.Sublabel = ""
					n.LastStateChangeMs = event.TimestampMs
					return n
				},
			})
		}
	}

	return EventResult{NodeChanges: changes}
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// handleRouteRequest locates the RequestFlow by explicit FlowID or by
// target match, runs the configured PathSelector (default "static"),
// records the flow as the active one (no per-node marker is set), and
// returns the path for token emission by the runner
// (spec.md §4.4; open question decision in DESIGN.md: ActiveFlowID is set
// whenever a flow was located, independent of whether the path is long
// enough to emit a token).
func handleRouteRequest(event ScenarioEvent, ctx ExecutionContext) EventResult {
	flow, ok := locateFlow(event, ctx)
	if !ok {
		return EventResult{Diagnostic: "route_request_flow_not_found"}
	}

	path, delta := ctx.PathSelector.ComputePath(flow, ctx)

	// Every available node along the computed path is "participating" in
	// the active flow. The only externally visible trace of this is the
	// runner-level ActiveFlowID (the sole flow-tracking field in
	// Snapshot, §6) — NodeState carries no per-node flow marker, so there
	// is nothing further to mutate here.
	return EventResult{
		ActiveFlowID: flow.ID,
		ComputedPath: path,
		StateDelta:   delta,
	}
}

func locateFlow(event ScenarioEvent, ctx ExecutionContext) (RequestFlow, bool) {
	flows := ctx.RequestFlows
	if event.FlowID != "" {
		for _, f := range flows {
			if f.ID == event.FlowID {
				return f, true
			}
		}
		return RequestFlow{}, false
	}
	for _, f := range flows {
		if f.TargetServiceID == event.TargetID {
			return f, true
		}
	}
	return RequestFlow{}, false
}
