package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/runar-labs/runar-node/errors"
)

// MetricsRegistrar defines the interface for registering service-specific metrics
type MetricsRegistrar interface {
	RegisterCounter(servicePath, metricName string, counter prometheus.Counter) error
	RegisterGauge(servicePath, metricName string, gauge prometheus.Gauge) error
	RegisterHistogram(servicePath, metricName string, histogram prometheus.Histogram) error
	RegisterCounterVec(servicePath, metricName string, counterVec *prometheus.CounterVec) error
	RegisterGaugeVec(servicePath, metricName string, gaugeVec *prometheus.GaugeVec) error
	RegisterHistogramVec(servicePath, metricName string, histogramVec *prometheus.HistogramVec) error
	Unregister(servicePath, metricName string) bool
}

// MetricsRegistry manages the registration and lifecycle of metrics. Core
// node metrics are registered at construction; services add their own
// through the MetricsRegistrar interface, keyed by "<path>.<name>" so a
// service cannot register the same metric twice.
type MetricsRegistry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
	registeredMetrics  map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewMetricsRegistry creates a new metrics registry with core node metrics
func NewMetricsRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		prometheusRegistry: prometheus.NewRegistry(),
		Metrics:            NewMetrics(),
		registeredMetrics:  make(map[string]prometheus.Collector),
	}

	r.prometheusRegistry.MustRegister(
		r.Metrics.RequestsTotal,
		r.Metrics.RequestDuration,
		r.Metrics.DispatchErrors,
		r.Metrics.EventsPublished,
		r.Metrics.EventDeliveries,
		r.Metrics.ActiveSubscriptions,
		r.Metrics.ServiceState,
		r.Metrics.ServicesRegistered,
	)

	// Go runtime metrics
	r.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// CoreMetrics returns the core node metrics
func (r *MetricsRegistry) CoreMetrics() *Metrics {
	return r.Metrics
}

// register adds a collector under the service-scoped key, rejecting
// duplicates at both the registry and Prometheus level
func (r *MetricsRegistry) register(method, servicePath, metricName string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", servicePath, metricName)

	if _, exists := r.registeredMetrics[key]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("metric %s already registered for service %s", metricName, servicePath),
			"MetricsRegistry", method, "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(c); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return errors.WrapInvalid(err, "MetricsRegistry", method,
				fmt.Sprintf("prometheus conflict for metric %s", metricName))
		}
		return errors.WrapFatal(err, "MetricsRegistry", method,
			"registering collector with prometheus")
	}

	r.registeredMetrics[key] = c
	return nil
}

// RegisterCounter registers a counter metric for a service
func (r *MetricsRegistry) RegisterCounter(servicePath, metricName string, counter prometheus.Counter) error {
	return r.register("RegisterCounter", servicePath, metricName, counter)
}

// RegisterGauge registers a gauge metric for a service
func (r *MetricsRegistry) RegisterGauge(servicePath, metricName string, gauge prometheus.Gauge) error {
	return r.register("RegisterGauge", servicePath, metricName, gauge)
}

// RegisterHistogram registers a histogram metric for a service
func (r *MetricsRegistry) RegisterHistogram(servicePath, metricName string, histogram prometheus.Histogram) error {
	return r.register("RegisterHistogram", servicePath, metricName, histogram)
}

// RegisterCounterVec registers a counter vector metric for a service
func (r *MetricsRegistry) RegisterCounterVec(servicePath, metricName string, counterVec *prometheus.CounterVec) error {
	return r.register("RegisterCounterVec", servicePath, metricName, counterVec)
}

// RegisterGaugeVec registers a gauge vector metric for a service
func (r *MetricsRegistry) RegisterGaugeVec(servicePath, metricName string, gaugeVec *prometheus.GaugeVec) error {
	return r.register("RegisterGaugeVec", servicePath, metricName, gaugeVec)
}

// RegisterHistogramVec registers a histogram vector metric for a service
func (r *MetricsRegistry) RegisterHistogramVec(
	servicePath, metricName string, histogramVec *prometheus.HistogramVec) error {
	return r.register("RegisterHistogramVec", servicePath, metricName, histogramVec)
}

// Unregister removes a metric from the registry
func (r *MetricsRegistry) Unregister(servicePath, metricName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", servicePath, metricName)

	collector, exists := r.registeredMetrics[key]
	if !exists {
		return false
	}

	success := r.prometheusRegistry.Unregister(collector)
	if success {
		delete(r.registeredMetrics, key)
	}

	return success
}

// UnregisterService removes every metric a service registered and returns
// how many were removed. Called when a service is removed from the node.
func (r *MetricsRegistry) UnregisterService(servicePath string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := servicePath + "."
	removed := 0
	for key, collector := range r.registeredMetrics {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			if r.prometheusRegistry.Unregister(collector) {
				delete(r.registeredMetrics, key)
				removed++
			}
		}
	}
	return removed
}
