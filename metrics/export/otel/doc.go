// Package otel bridges secureauthx engine metrics to an OpenTelemetry
// metric.Meter through observable instruments. Counters map to
// Int64ObservableCounter; the latency histogram is exposed as one cumulative
// gauge per bucket plus a count gauge.
package otel
