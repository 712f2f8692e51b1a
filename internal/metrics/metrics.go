// Package metrics exposes solver counters through Prometheus.
//
// A Recorder owns its registry rather than registering with the global
// default, so several recorders (one per test, for example) can coexist.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/katalvlaran/pressure/search"
)

// Outcomes recorded on pressure_solves_total.
const (
	OutcomeOK      = "ok"
	OutcomeCached  = "cached"
	OutcomeAborted = "aborted"
	OutcomeError   = "error"
)

// Recorder holds the solver metrics.
type Recorder struct {
	registry *prometheus.Registry

	// Expanded counts states expanded by the search.
	Expanded prometheus.Counter

	// MemoHits counts lookups answered from the memo.
	MemoHits prometheus.Counter

	// Pruned counts branch-and-bound cut-offs.
	Pruned prometheus.Counter

	// MemoEntries is the memo size of the most recent solve.
	MemoEntries prometheus.Gauge

	// Solves counts solves by strategy and outcome.
	Solves *prometheus.CounterVec

	// Duration observes wall time per solve.
	Duration *prometheus.HistogramVec
}

// New builds a Recorder on a fresh registry that also carries the Go runtime
// and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Expanded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pressure_expanded_states_total",
			Help: "Total number of search states expanded",
		}),
		MemoHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pressure_memo_hits_total",
			Help: "Total number of memo lookups that were hits",
		}),
		Pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pressure_pruned_branches_total",
			Help: "Total number of branches cut by bound or dominance",
		}),
		MemoEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pressure_memo_entries",
			Help: "Memo entries held by the most recent solve",
		}),
		Solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pressure_solves_total",
				Help: "Total number of solves",
			},
			[]string{"strategy", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pressure_solve_duration_seconds",
				Help:    "Wall time per solve",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"strategy"},
		),
	}
	r.registry.MustRegister(
		r.Expanded, r.MemoHits, r.Pruned, r.MemoEntries, r.Solves, r.Duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Registry returns the registry to serve.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Observe records one finished solve. err is the error returned by
// search.Optimize; errors wrapping search.ErrAborted count as aborted.
func (r *Recorder) Observe(st search.Strategy, stats search.Stats, elapsed time.Duration, err error) {
	r.Expanded.Add(float64(stats.Expanded))
	r.MemoHits.Add(float64(stats.MemoHits))
	r.Pruned.Add(float64(stats.Pruned))
	r.MemoEntries.Set(float64(stats.MemoEntries))
	r.Duration.WithLabelValues(st.String()).Observe(elapsed.Seconds())
	r.Solves.WithLabelValues(st.String(), outcome(err)).Inc()
}

// ObserveCached records a solve answered from the results store.
func (r *Recorder) ObserveCached(st search.Strategy) {
	r.Solves.WithLabelValues(st.String(), OutcomeCached).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, search.ErrAborted):
		return OutcomeAborted
	default:
		return OutcomeError
	}
}
