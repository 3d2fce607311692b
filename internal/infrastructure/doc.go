// Package infrastructure provides the cross-cutting runtime services of the
// pipeline: the slog logger, run and trace identifiers carried in context,
// OpenTelemetry providers and the pipeline metrics dumped to a Prometheus
// textfile at the end of a batch.
package infrastructure
