package sim

import (
	"github.com/boris-p/infrasim/sim/emit"
)

// Options bundles every construction-time knob sim.New accepts. Mirrors
// the teacher's New(reducer, store, emitter, options ...interface{})
// pattern (graph/engine.go): a plain struct for bulk configuration plus
// functional Options for targeted overrides, both accepted in the same
// variadic slot and applied in order, so a later Option always wins over
// an earlier Options struct.
type Options struct {
	Emitter               emit.Emitter
	Metrics               *RunnerMetrics
	Registry              *Registry
	MaxAdvanceIterations  int
	RNGSeed               int64
}

// Option mutates a runnerConfig during construction.
type Option func(*runnerConfig)

type runnerConfig struct {
	emitter              emit.Emitter
	metrics              *RunnerMetrics
	registry             *Registry
	maxAdvanceIterations int
	rngSeed              int64
	rngSeedSet           bool
}

func newRunnerConfig() *runnerConfig {
	return &runnerConfig{
		emitter:              emit.NewNullEmitter(),
		registry:             DefaultRegistry(),
		maxAdvanceIterations: 100,
	}
}

func (c *runnerConfig) apply(opts []interface{}) {
	for _, o := range opts {
		switch v := o.(type) {
		case Options:
			c.applyOptions(v)
		case *Options:
			if v != nil {
				c.applyOptions(*v)
			}
		case Option:
			v(c)
		}
	}
}

func (c *runnerConfig) applyOptions(o Options) {
	if o.Emitter != nil {
		c.emitter = o.Emitter
	}
	if o.Metrics != nil {
		c.metrics = o.Metrics
	}
	if o.Registry != nil {
		c.registry = o.Registry
	}
	if o.MaxAdvanceIterations > 0 {
		c.maxAdvanceIterations = o.MaxAdvanceIterations
	}
	if o.RNGSeed != 0 {
		c.rngSeed, c.rngSeedSet = o.RNGSeed, true
	}
}

// WithEmitter overrides the emit.Emitter used for per-event observability.
// Default is emit.NewNullEmitter().
func WithEmitter(e emit.Emitter) Option {
	return func(c *runnerConfig) { c.emitter = e }
}

// WithMetrics attaches a RunnerMetrics collector. No metrics are recorded
// by default.
func WithMetrics(m *RunnerMetrics) Option {
	return func(c *runnerConfig) { c.metrics = m }
}

// WithRegistry overrides the strategy Registry. Default is
// DefaultRegistry().
func WithRegistry(r *Registry) Option {
	return func(c *runnerConfig) { c.registry = r }
}

// WithMaxAdvanceIterations overrides the advance_tokens fixed-point loop's
// iteration cap (spec.md §4.5). Default 100.
func WithMaxAdvanceIterations(n int) Option {
	return func(c *runnerConfig) {
		if n > 0 {
			c.maxAdvanceIterations = n
		}
	}
}

// WithRNGSeed overrides the base seed the weighted load balancer derives
// its per-key PRNG chains from (sim/strategy_loadbalancer.go). Default is
// seedFromString(scenario.ID), so two runs of the same scenario are
// reproducible without this option; WithRNGSeed exists for tests that want
// a fixed seed independent of scenario id.
func WithRNGSeed(seed int64) Option {
	return func(c *runnerConfig) { c.rngSeed, c.rngSeedSet = seed, true }
}
