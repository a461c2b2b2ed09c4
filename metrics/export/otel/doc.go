// Package otel exports engine metrics through an OpenTelemetry meter.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter. Each
// latency histogram becomes a bucket gauge with an "le" attribute plus a
// count gauge. A single callback reads
// [sessionauth.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
