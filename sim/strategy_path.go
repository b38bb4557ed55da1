package sim

// staticPathSelector returns flow.Path unmodified, with failover: on the
// first unavailable node in the primary path it tries FailoverPath if every
// node in that path is available; otherwise it truncates the primary path
// up to and including the first unavailable node, so the token fails on
// arrival there (spec.md §4.3, §4.4).
type staticPathSelector struct{}

func (staticPathSelector) ComputePath(flow RequestFlow, ctx ExecutionContext) ([]string, StateDelta) {
	return computeStaticPath(flow, ctx), nil
}

func computeStaticPath(flow RequestFlow, ctx ExecutionContext) []string {
	for i, node := range flow.Path {
		if ctx.IsAvailable(node) {
			continue
		}
		if len(flow.FailoverPath) >= 2 && allAvailable(flow.FailoverPath, ctx) {
			return flow.FailoverPath
		}
		return flow.Path[:i+1]
	}
	return flow.Path
}

func allAvailable(path []string, ctx ExecutionContext) bool {
	for _, n := range path {
		if !ctx.IsAvailable(n) {
			return false
		}
	}
	return true
}

// healthiestPathSelector consults the scenario's configured LoadBalancer
// when flow defines PathConstraints.Candidates: in "replace mode" the
// chosen candidate substitutes an id already present in the base path;
// otherwise ("append mode") it is appended along with one downstream
// child (the first available outgoing neighbor of the chosen candidate in
// the graph). Falls back to static when no candidates are configured or no
// LoadBalancer is available.
type healthiestPathSelector struct{}

func (healthiestPathSelector) ComputePath(flow RequestFlow, ctx ExecutionContext) ([]string, StateDelta) {
	if flow.PathConstraints == nil || len(flow.PathConstraints.Candidates) == 0 || ctx.LoadBalancer == nil {
		return computeStaticPath(flow, ctx), nil
	}

	candidates := flow.PathConstraints.Candidates
	chosen, delta := ctx.LoadBalancer.SelectNode("healthiest:"+flow.ID, candidates, ctx)
	if chosen == "" {
		return computeStaticPath(flow, ctx), delta
	}

	base := append([]string{}, flow.Path...)
	for _, id := range base {
		if id == chosen {
			return base, delta // replace mode: candidate already present verbatim
		}
	}
	for i, id := range base {
		for _, cand := range candidates {
			if id == cand {
				base[i] = chosen // replace mode against a stale candidate slot
				return base, delta
			}
		}
	}

	out := append(base, chosen)
	for _, e := range ctx.OutgoingEdges(chosen) {
		if ctx.IsAvailable(e.Target) {
			out = append(out, e.Target)
			break
		}
	}
	return out, delta
}

// primaryAwarePathSelector scans the live nodes slice for the node
// currently tagged metadata.role=="primary", finds its single incoming
// edge's source (the AZ/region container), truncates the path there if
// that container is unavailable, and otherwise returns
// base_path ++ [container, primary]. Falls back to static if no primary
// exists.
type primaryAwarePathSelector struct{}

func (primaryAwarePathSelector) ComputePath(flow RequestFlow, ctx ExecutionContext) ([]string, StateDelta) {
	primaryID, ok := findPrimary(ctx)
	if !ok {
		return computeStaticPath(flow, ctx), nil
	}

	incoming := ctx.IncomingEdges(primaryID)
	if len(incoming) == 0 {
		return computeStaticPath(flow, ctx), nil
	}
	container := incoming[0].Source

	base := append([]string{}, flow.Path...)
	if !ctx.IsAvailable(container) {
		return append(base, container), nil
	}
	return append(base, container, primaryID), nil
}

func findPrimary(ctx ExecutionContext) (string, bool) {
	for id, n := range ctx.State.Nodes {
		if n.Metadata != nil && n.Metadata["role"] == "primary" {
			return id, true
		}
	}
	return "", false
}

// geoAwarePathSelector delegates to healthiest (placeholder, per
// spec.md §4.3).
type geoAwarePathSelector struct{}

func (geoAwarePathSelector) ComputePath(flow RequestFlow, ctx ExecutionContext) ([]string, StateDelta) {
	return healthiestPathSelector{}.ComputePath(flow, ctx)
}
