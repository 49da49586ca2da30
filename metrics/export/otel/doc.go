// Package otel publishes storageless counters and latency histograms as
// OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram, with one data point per "le" bucket
// attribute, plus a _count gauge. A single callback reads
// [storageless.Persistence.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate persistence state.
package otel
