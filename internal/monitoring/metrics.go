// Package monitoring exposes run metrics and ledger health summaries.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

const namespace = "donormap"

// Record outcomes.
const (
	OutcomeIndividual = "individual"
	OutcomeAggregated = "aggregated"
	OutcomeUnresolved = "unresolved"
)

// Metrics holds the Prometheus collectors for a mapping run. Each Metrics
// owns its registry so tests and repeated runs never collide.
type Metrics struct {
	registry *prometheus.Registry

	Records         *prometheus.CounterVec // labels: outcome={individual,aggregated,unresolved}
	FeaturesWritten *prometheus.CounterVec // labels: kind={individual,aggregate,summary}
	Files           *prometheus.CounterVec // labels: status={complete,failed}
	IndexEntries    *prometheus.GaugeVec   // labels: table={postal,place}
	FileDuration    prometheus.Histogram
}

// NewMetrics creates and registers all run metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Donation records processed by outcome.",
		}, []string{"outcome"}),
		FeaturesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_written_total",
			Help:      "GeoJSON features written by kind.",
		}, []string{"kind"}),
		Files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Input files processed by final status.",
		}, []string{"status"}),
		IndexEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_entries",
			Help:      "Entries in the geocode index by table.",
		}, []string{"table"}),
		FileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Wall time to map one input file.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	m.registry.MustRegister(
		m.Records,
		m.FeaturesWritten,
		m.Files,
		m.IndexEntries,
		m.FileDuration,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveIndex records the size of the geocode index tables.
func (m *Metrics) ObserveIndex(postalEntries, placeEntries int) {
	if m == nil {
		return
	}
	m.IndexEntries.WithLabelValues("postal").Set(float64(postalEntries))
	m.IndexEntries.WithLabelValues("place").Set(float64(placeEntries))
}

// ObserveRecords adds n records with the given outcome.
func (m *Metrics) ObserveRecords(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Records.WithLabelValues(outcome).Add(float64(n))
}

// ObserveFeatures adds n written features of the given kind.
func (m *Metrics) ObserveFeatures(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FeaturesWritten.WithLabelValues(kind).Add(float64(n))
}

// ObserveFile records a finished file and how long it took.
func (m *Metrics) ObserveFile(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.Files.WithLabelValues(status).Inc()
	m.FileDuration.Observe(d.Seconds())
}

// WriteTextfile writes the registry in the node_exporter textfile format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return eris.Wrapf(err, "monitoring: write textfile %s", path)
	}
	return nil
}
