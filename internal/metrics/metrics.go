package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Registry holds all Prometheus metrics for the rotation engine. Metrics are
// registered against a private registry so tests and embedded uses never
// collide on the global default.
type Registry struct {
	reg *prometheus.Registry

	ScanDuration   *prometheus.HistogramVec
	ScansTotal     prometheus.Counter
	ScoresComputed prometheus.Counter

	RotationsTotal *prometheus.CounterVec
	TradesTotal    *prometheus.CounterVec

	PortfolioValue  prometheus.Gauge
	ActivePositions prometheus.Gauge

	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	FetchFailures *prometheus.CounterVec
}

// NewRegistry creates and registers the full metric set
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rotor_scan_duration_seconds",
				Help:    "Duration of each scan step in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"step", "result"},
		),
		ScansTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rotor_scans_total",
				Help: "Total number of scans initiated",
			},
		),
		ScoresComputed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rotor_scores_computed_total",
				Help: "Total number of instrument scores computed",
			},
		),
		RotationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotor_rotations_total",
				Help: "Total number of executed rotation decisions by reason",
			},
			[]string{"reason"},
		),
		TradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotor_trades_total",
				Help: "Total number of recorded trades by kind",
			},
			[]string{"kind"},
		),
		PortfolioValue: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rotor_portfolio_value",
				Help: "Current total portfolio value",
			},
		),
		ActivePositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "rotor_active_positions",
				Help: "Number of currently open positions",
			},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotor_cache_hits_total",
				Help: "Total number of cache hits by cache type",
			},
			[]string{"cache_type"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotor_cache_misses_total",
				Help: "Total number of cache misses by cache type",
			},
			[]string{"cache_type"},
		),
		FetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotor_fetch_failures_total",
				Help: "Total number of failed market-data fetches by kind",
			},
			[]string{"kind"},
		),
	}

	r.reg.MustRegister(
		r.ScanDuration,
		r.ScansTotal,
		r.ScoresComputed,
		r.RotationsTotal,
		r.TradesTotal,
		r.PortfolioValue,
		r.ActivePositions,
		r.CacheHits,
		r.CacheMisses,
		r.FetchFailures,
	)
	return r
}

// Prometheus exposes the underlying registry for the /metrics handler
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}

// StepTimer tracks execution time of one scan step
type StepTimer struct {
	registry *Registry
	step     string
	start    time.Time
}

// StartStepTimer begins timing a scan step
func (r *Registry) StartStepTimer(step string) *StepTimer {
	return &StepTimer{registry: r, step: step, start: time.Now()}
}

// Stop records the elapsed time under the given result label
func (t *StepTimer) Stop(result string) {
	elapsed := time.Since(t.start)
	t.registry.ScanDuration.WithLabelValues(t.step, result).Observe(elapsed.Seconds())

	log.Debug().Str("step", t.step).Str("result", result).
		Dur("duration", elapsed).Msg("scan step completed")
}

// ObservePortfolio updates the portfolio gauges after a mutation
func (r *Registry) ObservePortfolio(totalValue float64, openPositions int) {
	r.PortfolioValue.Set(totalValue)
	r.ActivePositions.Set(float64(openPositions))
}
