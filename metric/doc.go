// Package metric provides Prometheus-based observability for the node.
//
// A MetricsRegistry owns a private Prometheus registry preloaded with the
// core node metrics: request totals and durations per service/operation,
// dispatch rejections by kind, event publish/delivery counters, live
// subscription and service state gauges, plus Go runtime collectors.
//
// Services register their own metrics through the MetricsRegistrar
// interface; registrations are keyed by "<service_path>.<metric_name>" so
// duplicates are rejected before they reach Prometheus, and a service's
// metrics can be torn down together when it is removed.
//
// Server exposes the registry over HTTP at /metrics (OpenMetrics enabled)
// with a trivial /health endpoint alongside.
package metric
