// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Import record outcomes.
const (
	ImportCreated = "created"
	ImportFailed  = "failed"
)

// Metrics groups the collectors recorded by the catalog, importer and API.
type Metrics struct {
	registry *prometheus.Registry

	ImportRecords         *prometheus.CounterVec
	ImageMaterializations *prometheus.CounterVec
	ImageFetchSeconds     prometheus.Histogram
	InterestToggles       *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		ImportRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "darila_import_records_total",
			Help: "Bulk import records processed, by outcome.",
		}, []string{"outcome"}),
		ImageMaterializations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "darila_image_materializations_total",
			Help: "Remote image materializations, by outcome.",
		}, []string{"outcome"}),
		ImageFetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "darila_image_fetch_seconds",
			Help:    "Duration of outbound image fetches.",
			Buckets: prometheus.DefBuckets,
		}),
		InterestToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "darila_interest_toggles_total",
			Help: "Interest toggles, by resulting action.",
		}, []string{"action"}),
	}

	reg.MustRegister(m.ImportRecords, m.ImageMaterializations, m.ImageFetchSeconds, m.InterestToggles)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
