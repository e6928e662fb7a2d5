package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the node-level metrics (not service-specific)
type Metrics struct {
	// Request dispatch
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	DispatchErrors  *prometheus.CounterVec

	// Event bus
	EventsPublished     *prometheus.CounterVec
	EventDeliveries     *prometheus.CounterVec
	ActiveSubscriptions prometheus.Gauge

	// Lifecycle
	ServiceState       *prometheus.GaugeVec
	ServicesRegistered prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all node metrics
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "runar",
				Subsystem: "node",
				Name:      "requests_total",
				Help:      "Total number of dispatched requests",
			},
			[]string{"service", "operation", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "runar",
				Subsystem: "node",
				Name:      "request_duration_seconds",
				Help:      "Request handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),

		DispatchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "runar",
				Subsystem: "node",
				Name:      "dispatch_errors_total",
				Help:      "Requests rejected before reaching a handler, by kind",
			},
			[]string{"kind"},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "runar",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Total number of published events",
			},
			[]string{"topic"},
		),

		EventDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "runar",
				Subsystem: "events",
				Name:      "deliveries_total",
				Help:      "Total number of event handler invocations",
			},
			[]string{"topic", "status"},
		),

		ActiveSubscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "runar",
				Subsystem: "events",
				Name:      "active_subscriptions",
				Help:      "Number of live event subscriptions",
			},
		),

		ServiceState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "runar",
				Subsystem: "service",
				Name:      "state",
				Help:      "Service lifecycle state (0=created, 1=initialized, 2=running, 3=stopped)",
			},
			[]string{"service"},
		),

		ServicesRegistered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "runar",
				Subsystem: "node",
				Name:      "services_registered",
				Help:      "Number of registered services",
			},
		),
	}
}

// RecordRequest records a dispatched request and its duration
func (c *Metrics) RecordRequest(service, operation, status string, duration time.Duration) {
	c.RequestsTotal.WithLabelValues(service, operation, status).Inc()
	c.RequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordDispatchError increments the dispatch error counter for a kind
func (c *Metrics) RecordDispatchError(kind string) {
	c.DispatchErrors.WithLabelValues(kind).Inc()
}

// RecordPublish increments the published event counter
func (c *Metrics) RecordPublish(topic string) {
	c.EventsPublished.WithLabelValues(topic).Inc()
}

// RecordDelivery records one event handler invocation outcome
func (c *Metrics) RecordDelivery(topic string, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	c.EventDeliveries.WithLabelValues(topic, status).Inc()
}

// SetActiveSubscriptions updates the live subscription gauge
func (c *Metrics) SetActiveSubscriptions(n int) {
	c.ActiveSubscriptions.Set(float64(n))
}

// RecordServiceState updates a service's lifecycle state gauge
func (c *Metrics) RecordServiceState(service string, state int) {
	c.ServiceState.WithLabelValues(service).Set(float64(state))
}

// SetServicesRegistered updates the registered service gauge
func (c *Metrics) SetServicesRegistered(n int) {
	c.ServicesRegistered.Set(float64(n))
}
