// Package prometheus exposes goAccount engine metrics through
// client_golang.
//
// [Collector] reads [goAccount.Engine.MetricsSnapshot] on each scrape and
// emits goaccount_*_total counters and the goaccount_login_latency_seconds
// histogram. [Exporter] wraps it in a private registry and serves it with
// promhttp; nothing is registered on the global registry.
package prometheus
