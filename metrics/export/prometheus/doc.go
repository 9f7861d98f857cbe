// Package prometheus exposes secureauthx engine metrics through
// client_golang.
//
// [Collector] turns each engine snapshot into const metrics at scrape time.
// Counter names are secureauthx_*_total; the single histogram is
// secureauthx_validate_latency_seconds. [Handler] mounts the collector on a
// private registry.
package prometheus
