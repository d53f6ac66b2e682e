package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/retro-catalog/catalog-events/v1/observability"
)

// MetricsCollector is the metrics surface used by the workers and command
// wiring. *Metrics implements it.
type MetricsCollector interface {
	observability.Observer

	CreateCounter(name, help string, labels []string) *prometheus.CounterVec
	CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec
	CreateGauge(name, help string, labels []string) *prometheus.GaugeVec

	// TrackState exports a 0/1 gauge computed on scrape.
	TrackState(name, help string, up func() bool)

	// Handle mounts an extra endpoint on the metrics server.
	Handle(pattern string, handler http.Handler)
}

var _ MetricsCollector = (*Metrics)(nil)
