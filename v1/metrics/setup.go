package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns an isolated Prometheus registry and the HTTP server that
// exposes it on /metrics. Other packages mount extra endpoints, such as the
// health check, on the same server through Handle.
type Metrics struct {
	Server   *http.Server
	Registry *prometheus.Registry

	registerer prometheus.Registerer
	namespace  string
	mux        *http.ServeMux

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationBytes    *prometheus.CounterVec
}

// NewMetrics creates the registry, registers the operation metrics fed by
// ObserveOperation and builds (but does not start) the server.
func NewMetrics(cfg Config) *Metrics {
	if cfg.Address == "" {
		cfg.Address = DefaultMetricsAddress
	}

	registry := prometheus.NewRegistry()
	var registerer prometheus.Registerer = registry
	if cfg.ServiceName != "" {
		// every metric carries service="<name>"
		registerer = prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)
	}

	m := &Metrics{
		Registry:   registry,
		registerer: registerer,
		namespace:  cfg.Namespace,
		mux:        http.NewServeMux(),
	}

	m.operationsTotal = createCounterVec(cfg.Namespace, "operations_total",
		"Infrastructure operations by component, operation, resource, outcome and status.",
		[]string{"component", "operation", "resource", "outcome", "status"})
	m.operationDuration = createHistogramVec(cfg.Namespace, "operation_duration_seconds",
		"Duration of infrastructure operations in seconds.",
		[]string{"component", "operation", "resource"}, prometheus.DefBuckets)
	m.operationBytes = createCounterVec(cfg.Namespace, "operation_bytes_total",
		"Payload bytes moved by infrastructure operations.",
		[]string{"component", "operation", "resource"})

	registerer.MustRegister(m.operationsTotal, m.operationDuration, m.operationBytes)

	if cfg.EnableDefaultCollectors {
		registerer.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	m.mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registerer}))
	m.Server = &http.Server{
		Addr:              cfg.Address,
		Handler:           m.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return m
}

// Handle mounts handler on the metrics server. It must be called before the
// server starts.
func (m *Metrics) Handle(pattern string, handler http.Handler) {
	m.mux.Handle(pattern, handler)
}
