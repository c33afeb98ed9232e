package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WatcherMetrics records reconciliation loop activity. A nil *WatcherMetrics
// is valid and records nothing.
type WatcherMetrics struct {
	ticks       *prometheus.CounterVec
	duration    prometheus.Histogram
	settlements prometheus.Counter
	released    prometheus.Counter
	payeeErrors prometheus.Counter
}

// NewWatcherMetrics registers the watcher metrics on reg.
func NewWatcherMetrics(reg prometheus.Registerer) *WatcherMetrics {
	if reg == nil {
		return &WatcherMetrics{}
	}
	m := &WatcherMetrics{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "link2pay_watcher_ticks_total",
			Help: "Watcher ticks by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "link2pay_watcher_tick_duration_seconds",
			Help:    "Duration of watcher ticks in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "link2pay_watcher_settlements_total",
			Help: "Invoices settled by the watcher.",
		}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "link2pay_watcher_released_intents_total",
			Help: "Stale pay intents returned to PENDING.",
		}),
		payeeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "link2pay_watcher_payee_errors_total",
			Help: "Payees whose reconciliation failed within a tick.",
		}),
	}
	reg.MustRegister(m.ticks, m.duration, m.settlements, m.released, m.payeeErrors)
	return m
}

func (m *WatcherMetrics) observeTick(report *TickReport, err error, duration time.Duration) {
	if m == nil || m.ticks == nil || report == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case report.Skipped:
		outcome = "skipped"
	}
	m.ticks.WithLabelValues(outcome).Inc()
	m.duration.Observe(duration.Seconds())
	m.settlements.Add(float64(report.Settled))
	m.released.Add(float64(report.Released))
	m.payeeErrors.Add(float64(report.Failures))
}
