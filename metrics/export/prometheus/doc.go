// Package prometheus renders tabguard metrics for Prometheus scraping.
//
// [NewPrometheusExporter] accepts a [tabguard.Engine] and exposes an
// [http.Handler] that renders all tabguard counters and histograms in
// Prometheus text exposition format. Counter names are prefixed
// tabguard_*_total; the single histogram is
// tabguard_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the
//     Handler.
//   - Mutate engine state.
package prometheus
