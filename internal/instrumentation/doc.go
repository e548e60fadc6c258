// Package instrumentation provides OpenTelemetry metrics and tracing for
// the scheduling pipeline.
//
// A Provider wires a meter provider and a tracer provider from environment
// configuration (Prometheus, OTLP, or stdout exporters) and hands out a
// Metrics recorder covering message processing results, language model
// requests, Google API operations, and OAuth token refreshes.
//
// Instrumentation is optional: a nil or disabled Provider yields no-op
// metrics and tracing, so the pipeline can run without any exporter
// configured.
package instrumentation
