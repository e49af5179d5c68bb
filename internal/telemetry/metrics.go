package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "gieplan",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

var RostersGeneratedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "gieplan",
		Subsystem: "roster",
		Name:      "generated_total",
		Help:      "Total number of rosters generated.",
	},
)

var GenerationDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "gieplan",
		Subsystem: "roster",
		Name:      "generation_duration_seconds",
		Help:      "Roster generation duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
)

var GenerationWarningsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "gieplan",
		Subsystem: "roster",
		Name:      "generation_warnings_total",
		Help:      "Total number of soft warnings emitted during generation.",
	},
	[]string{"kind"},
)

var FairnessGini = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "gieplan",
		Subsystem: "fairness",
		Name:      "gini",
		Help:      "Gini coefficient of selection rates after the last generation.",
	},
)

var FairnessCV = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "gieplan",
		Subsystem: "fairness",
		Name:      "rate_cv",
		Help:      "Coefficient of variation of selection rates after the last generation.",
	},
)

// NewMetricsRegistry creates a registry with the standard collectors plus
// the gieplan metrics.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
		RostersGeneratedTotal,
		GenerationDuration,
		GenerationWarningsTotal,
		FairnessGini,
		FairnessCV,
	)
	return reg
}
