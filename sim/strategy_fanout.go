package sim

// quorumReplicationFanOut triggers only if nodeID matches cfg.NodeRoles
// (checked against live metadata.role) or cfg.NodeTypes (static kind);
// requires at least one configured gate to pass. Enumerates outgoing
// edges, skipping targets whose nodes are unavailable; each child path is
// [nodeID, target]. quorum_required defaults to ceil(n/2), clamped to
// child count (spec.md §4.3).
type quorumReplicationFanOut struct{}

func (quorumReplicationFanOut) ComputeFanOut(nodeID string, ctx ExecutionContext, cfg *FanOutConfig) FanOutResult {
	if cfg == nil || !matchesGate(nodeID, ctx, cfg) {
		return FanOutResult{}
	}

	var children [][]string
	for _, e := range ctx.OutgoingEdges(nodeID) {
		if !ctx.IsAvailable(e.Target) {
			continue
		}
		children = append(children, []string{nodeID, e.Target})
	}
	if len(children) == 0 {
		return FanOutResult{}
	}

	required := (len(children) + 1) / 2
	if cfg.QuorumRequired != nil {
		required = *cfg.QuorumRequired
	}
	if required > len(children) {
		required = len(children)
	}

	return FanOutResult{ShouldFanOut: true, ChildPaths: children, QuorumRequired: required}
}

func matchesGate(nodeID string, ctx ExecutionContext, cfg *FanOutConfig) bool {
	if len(cfg.NodeRoles) == 0 && len(cfg.NodeTypes) == 0 {
		return false
	}
	if role, ok := ctx.State.Nodes[nodeID]; ok && role.Metadata != nil {
		for _, r := range cfg.NodeRoles {
			if role.Metadata["role"] == r {
				return true
			}
		}
	}
	kind := ctx.NodeKind(nodeID)
	for _, t := range cfg.NodeTypes {
		if kind == t {
			return true
		}
	}
	return false
}

// broadcastReplicationFanOut has no role/type gate by default: it includes
// every outgoing edge, even to unavailable targets (those children are
// birthed as failed by the runner). quorum_required equals the child
// count (spec.md §4.3). Per spec.md §9's Open Question decision, a
// zero-outgoing-edge terminal node never fans out, left as-is.
type broadcastReplicationFanOut struct{}

func (broadcastReplicationFanOut) ComputeFanOut(nodeID string, ctx ExecutionContext, cfg *FanOutConfig) FanOutResult {
	edges := ctx.OutgoingEdges(nodeID)
	if len(edges) == 0 {
		return FanOutResult{}
	}

	children := make([][]string, 0, len(edges))
	for _, e := range edges {
		children = append(children, []string{nodeID, e.Target})
	}
	return FanOutResult{ShouldFanOut: true, ChildPaths: children, QuorumRequired: len(children)}
}

// noneFanOut never fans out.
type noneFanOut struct{}

func (noneFanOut) ComputeFanOut(string, ExecutionContext, *FanOutConfig) FanOutResult {
	return FanOutResult{}
}
