package tracer

// Config controls the tracer provider.
type Config struct {
	// ServiceName is recorded as the service.name resource attribute.
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"catalog-events"`

	// AppEnv is recorded as deployment.environment.
	AppEnv string `yaml:"app_env" envconfig:"APP_ENV" default:"development"`

	// EnableExport sends spans to an OTLP HTTP collector. The endpoint and
	// headers come from the standard OTEL_EXPORTER_OTLP_* variables unless
	// Endpoint is set.
	EnableExport bool `yaml:"enable_export" envconfig:"TRACER_ENABLE_EXPORT" default:"false"`

	// Endpoint is host:port of the collector, e.g. "otel-collector:4318".
	Endpoint string `yaml:"endpoint" envconfig:"TRACER_ENDPOINT"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure" envconfig:"TRACER_INSECURE" default:"false"`

	// SampleRatio is the fraction of root spans sampled. Child spans follow
	// their parent.
	SampleRatio float64 `yaml:"sample_ratio" envconfig:"TRACER_SAMPLE_RATIO" default:"1"`
}
