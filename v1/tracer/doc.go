// Package tracer configures OpenTelemetry for the catalog event processes:
// a global tracer provider with an optional OTLP HTTP exporter and the W3C
// propagators used to carry trace context through AMQP headers.
package tracer
