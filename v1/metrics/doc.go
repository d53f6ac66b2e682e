// Package metrics exposes Prometheus metrics for the catalog event processes.
//
// NewMetrics builds an isolated registry, optionally labelled with the
// service name, and an HTTP server serving it on /metrics. *Metrics
// implements observability.Observer, so passing it to the rabbit and outcome
// packages turns every connect, publish, consume and report into the
// operations_total, operation_duration_seconds and operation_bytes_total
// series. TrackState exports boolean state such as broker connectivity.
//
// The server also carries the health endpoint; see the health package.
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", ServiceName: "image-processor"})
//	manager := rabbit.NewConnectionManager(cfg, rabbit.WithObserver(m))
//	m.TrackState("rabbitmq_connected", "1 while the broker connection is up.", manager.IsConnected)
//
// With fx, include FXModule and provide a metrics.Config.
package metrics
