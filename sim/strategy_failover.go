package sim

// defaultFailover is the FailoverStrategy exposed through the registry for
// scenario-authored composite strategies (spec.md §4.3: "used by ... by
// composite strategies"). The default, built-in failover behavior
// described in spec.md §4.3 for the static PathSelector is self-contained
// (it consults RequestFlow.FailoverPath directly — see
// computeStaticPath in strategy_path.go) and does not call through this
// interface; defaultFailover exists so a scenario can register its own
// implementation under a different id without the runner caring which
// shape the alternative-path search takes.
//
// Given only a primary path and the node id where it failed (no flow
// object), the default implementation has no alternative topology to
// consult and always reports no alternative. It does not retry in-flight
// tokens.
type defaultFailover struct{}

func (defaultFailover) ComputeFailover([]string, string, ExecutionContext) ([]string, bool) {
	return nil, false
}
