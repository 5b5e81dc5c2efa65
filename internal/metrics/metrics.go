// Package metrics exposes prometheus instrumentation for simulations and
// optimization runs, plus the /metrics HTTP endpoint.
package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors the engine reports into.
type Metrics struct {
	CandlesProcessed prometheus.Counter
	OrdersExecuted   prometheus.Counter
	Liquidations     prometheus.Counter

	SimulationsTotal   prometheus.Counter
	SimulationDuration prometheus.Histogram

	CandidatesScored *prometheus.CounterVec
	BestScore        prometheus.Gauge
}

// New registers the collectors on a fresh registry and returns both.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	m := &Metrics{
		CandlesProcessed: f.NewCounter(prometheus.CounterOpts{
			Name: "quantsim_candles_processed_total",
			Help: "One-minute candles pushed through the matching engine.",
		}),
		OrdersExecuted: f.NewCounter(prometheus.CounterOpts{
			Name: "quantsim_orders_executed_total",
			Help: "Orders filled by the matching engine.",
		}),
		Liquidations: f.NewCounter(prometheus.CounterOpts{
			Name: "quantsim_liquidations_total",
			Help: "Isolated positions force-closed at bankruptcy price.",
		}),
		SimulationsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "quantsim_simulations_total",
			Help: "Completed simulation runs.",
		}),
		SimulationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "quantsim_simulation_duration_seconds",
			Help:    "Wall time per simulation run.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		CandidatesScored: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quantsim_candidates_scored_total",
			Help: "Optimization candidates scored, by algorithm.",
		}, []string{"algorithm"}),
		BestScore: f.NewGauge(prometheus.GaugeOpts{
			Name: "quantsim_best_score",
			Help: "Best candidate score seen in the current study.",
		}),
	}
	return m, reg
}

// ObserveSimulation records one finished run.
func (m *Metrics) ObserveSimulation(start time.Time) {
	if m == nil {
		return
	}
	m.SimulationsTotal.Inc()
	m.SimulationDuration.Observe(time.Since(start).Seconds())
}

// Serve exposes /metrics on addr in a background goroutine. Disabled when
// addr is empty.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("[metrics] server stopped: %v", err)
		}
	}()
}
