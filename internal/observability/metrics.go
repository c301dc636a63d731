package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wrf_geojson"

// Conversion outcomes used as the "outcome" label.
const (
	OutcomeSuccess    = "success"
	OutcomeDegenerate = "degenerate"
	OutcomeError      = "error"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the converter.
type Metrics struct {
	Conversions      *prometheus.CounterVec // labels: outcome={success,degenerate,error}
	FeaturesProduced prometheus.Counter
	BandsTraced      prometheus.Counter
	PathsDiscarded   prometheus.Counter
	InFlight         prometheus.Gauge

	// Grid and timing metrics.
	GridCells          prometheus.Histogram
	ConversionDuration prometheus.Histogram
	PublishDuration    *prometheus.HistogramVec // labels: sink={file,stream,kafka}
}

// NewMetrics creates and registers all converter metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates converter metrics registered with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.Conversions,
		m.FeaturesProduced,
		m.BandsTraced,
		m.PathsDiscarded,
		m.InFlight,
		m.GridCells,
		m.ConversionDuration,
		m.PublishDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Grid to GeoJSON conversions by outcome.",
		}, []string{"outcome"}),
		FeaturesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_produced_total",
			Help:      "Total GeoJSON features emitted.",
		}),
		BandsTraced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bands_traced_total",
			Help:      "Total contour bands traced.",
		}),
		PathsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paths_discarded_total",
			Help:      "Boundary paths dropped as degenerate or as holes without an enclosing outer ring.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversions_in_flight",
			Help:      "Conversions currently running.",
		}),
		GridCells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grid_cells",
			Help:      "Number of nodes in each converted grid.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}),
		ConversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Duration of a complete load-trace-assemble cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Time spent handing a document to a sink.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"sink"}),
	}
}
