package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/civicnotify/dispatch-engine/internal/domain"
)

// Metrics groups all Prometheus instruments used across the engine.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	SendsTotal      *prometheus.CounterVec
	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	EventsProcessed *prometheus.CounterVec
	ItemsQueued     *prometheus.CounterVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct. Using a custom registry keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_sends_total",
			Help: "Total delivery attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_runs_total",
			Help: "Total completed runs per job.",
		}, []string{"job"}),

		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_run_seconds",
			Help:    "Wall-clock duration of one run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),

		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_events_processed_total",
			Help: "Change events examined per job.",
		}, []string{"job"}),

		ItemsQueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_items_queued_total",
			Help: "Queue items created per job.",
		}, []string{"job"}),
	}

	reg.MustRegister(
		m.SendsTotal,
		m.RunsTotal,
		m.RunDuration,
		m.EventsProcessed,
		m.ItemsQueued,
	)

	return m
}

// EngineHooks returns the metric callback functions expected by the
// engine's Hooks struct. Centralises the prometheus observation calls so
// the engine stays import-free.
func (m *Metrics) EngineHooks() (
	onSent func(domain.Channel),
	onFailed func(domain.Channel),
	onRun func(job string, duration time.Duration, stats domain.RunStats),
) {
	onSent = func(ch domain.Channel) {
		m.SendsTotal.WithLabelValues(string(ch), string(domain.OutcomeSent)).Inc()
	}
	onFailed = func(ch domain.Channel) {
		m.SendsTotal.WithLabelValues(string(ch), string(domain.OutcomeFailed)).Inc()
	}
	onRun = func(job string, duration time.Duration, stats domain.RunStats) {
		m.RunsTotal.WithLabelValues(job).Inc()
		m.RunDuration.WithLabelValues(job).Observe(duration.Seconds())
		m.EventsProcessed.WithLabelValues(job).Add(float64(stats.EventsProcessed))
		m.ItemsQueued.WithLabelValues(job).Add(float64(stats.ItemsQueued))
	}
	return
}
