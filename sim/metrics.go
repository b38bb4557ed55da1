package sim

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RunnerMetrics is a Prometheus collector for one ScenarioRunner, adapted
// from the teacher's PrometheusMetrics (graph/metrics.go): gauges for
// point-in-time counts, a histogram for the advance_tokens loop's
// iteration count, and counters for cumulative totals. All metrics are
// namespaced "infrasim_".
type RunnerMetrics struct {
	tokensInflight         prometheus.Gauge
	checkpointCount        prometheus.Gauge
	advanceLoopIterations  prometheus.Histogram
	eventsProcessed        prometheus.Counter
	tokenOutcomes          *prometheus.CounterVec
	seekDuration           prometheus.Histogram
}

// NewRunnerMetrics registers every infrasim_* metric with registry and
// returns the collector. Pass prometheus.DefaultRegisterer for the global
// registry, or a fresh prometheus.NewRegistry() for test isolation.
func NewRunnerMetrics(registry prometheus.Registerer) *RunnerMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &RunnerMetrics{
		tokensInflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "infrasim",
			Name:      "tokens_inflight",
			Help:      "Current number of tokens in traveling or waiting status",
		}),
		checkpointCount: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "infrasim",
			Name:      "checkpoint_count",
			Help:      "Number of entries in the runner's checkpoint log",
		}),
		advanceLoopIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "infrasim",
			Name:      "advance_loop_iterations",
			Help:      "Iterations the advance_tokens fixed-point loop took to settle",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 100},
		}),
		eventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "infrasim",
			Name:      "events_processed_total",
			Help:      "Cumulative count of scenario events applied to the state store",
		}),
		tokenOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infrasim",
			Name:      "token_outcomes_total",
			Help:      "Cumulative count of tokens reaching a terminal status",
		}, []string{"status"}), // completed | failed
		seekDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "infrasim",
			Name:      "seek_duration_ms",
			Help:      "Wall-clock duration of a seek_to/advance_to call, in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
		}),
	}
}

func (m *RunnerMetrics) setTokensInflight(n int) {
	if m == nil {
		return
	}
	m.tokensInflight.Set(float64(n))
}

func (m *RunnerMetrics) setCheckpointCount(n int) {
	if m == nil {
		return
	}
	m.checkpointCount.Set(float64(n))
}

func (m *RunnerMetrics) observeAdvanceLoopIterations(n int) {
	if m == nil {
		return
	}
	m.advanceLoopIterations.Observe(float64(n))
}

func (m *RunnerMetrics) incrementEventsProcessed() {
	if m == nil {
		return
	}
	m.eventsProcessed.Inc()
}

func (m *RunnerMetrics) incrementTokenOutcome(status TokenStatus) {
	if m == nil {
		return
	}
	m.tokenOutcomes.WithLabelValues(string(status)).Inc()
}

func (m *RunnerMetrics) observeSeekDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.seekDuration.Observe(float64(d) / float64(time.Millisecond))
}
