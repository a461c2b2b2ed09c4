// Package prometheus exposes engine counters and the login latency histogram
// through prometheus/client_golang.
//
// [NewExporter] builds a private registry holding a [Collector] that reads
// [sessionauth.Engine.MetricsSnapshot] on each scrape. Counter names are
// prefixed sessionauth_ and end in _total.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
