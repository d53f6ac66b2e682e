package metrics

// DefaultMetricsAddress is used when Config.Address is empty.
const DefaultMetricsAddress = ":9090"

// Config controls the metrics registry and the HTTP server that exposes it.
type Config struct {
	// Address is where the metrics server listens, e.g. ":9090".
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS" default:":9090"`

	// EnableDefaultCollectors registers the Go runtime, process and build
	// info collectors.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS" default:"true"`

	// Namespace prefixes every metric name registered by this package.
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE" default:"catalog"`

	// ServiceName is attached to every metric as the constant label service.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME"`
}
