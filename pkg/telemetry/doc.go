// Package telemetry wires OpenTelemetry into the gateway: the OTLP trace
// exporter bootstrap and the metric instruments recorded per request stage.
package telemetry
