// Package otel binds goAccount engine metrics to an OpenTelemetry meter.
//
// [NewOTelExporter] creates one Int64ObservableCounter per engine counter
// and one Int64ObservableGauge per latency bucket, all fed by a single
// callback over [goAccount.Engine.MetricsSnapshot]. The caller owns the
// MeterProvider.
package otel
