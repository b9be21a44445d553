package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Assistant call outcomes
const (
	OutcomeOK            = "ok"
	OutcomeTimeout       = "timeout"
	OutcomeError         = "error"
	OutcomeInvalidAction = "invalid_action"
)

// MetricsCollector handles metrics collection and reporting. A nil
// collector is valid and records nothing.
type MetricsCollector struct {
	registry *prometheus.Registry
	metrics  map[string]prometheus.Collector
	monitor  *Monitor
}

// NewMetricsCollector creates a new metrics collector on its own registry.
// The monitor, when non-nil, mirrors the counters for the JSON snapshot.
func NewMetricsCollector(monitor *Monitor) *MetricsCollector {
	registry := prometheus.NewRegistry()

	messages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seasonbot_messages_total",
			Help: "Chat messages handled, by route",
		},
		[]string{"route"},
	)

	assistantCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seasonbot_assistant_calls_total",
			Help: "Remote assistant calls, by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	assistantLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seasonbot_assistant_latency_seconds",
			Help:    "Time taken by the remote assistant",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
		[]string{"provider"},
	)

	actions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seasonbot_order_actions_total",
			Help: "Order actions applied by the reducer",
		},
		[]string{"action", "changed"},
	)

	orders := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seasonbot_orders_confirmed_total",
			Help: "Orders confirmed, by delivery type",
		},
		[]string{"delivery_type"},
	)

	orderValue := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seasonbot_order_total_amount",
			Help:    "Confirmed order totals in currency units",
			Buckets: prometheus.LinearBuckets(0, 1000, 15),
		},
	)

	storageErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seasonbot_storage_errors_total",
			Help: "Persistence failures, by operation",
		},
		[]string{"operation"},
	)

	sessions := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "seasonbot_active_sessions",
			Help: "Widget sessions currently held in memory",
		},
	)

	metrics := map[string]prometheus.Collector{
		"messages":          messages,
		"assistant_calls":   assistantCalls,
		"assistant_latency": assistantLatency,
		"actions":           actions,
		"orders":            orders,
		"order_value":       orderValue,
		"storage_errors":    storageErrors,
		"sessions":          sessions,
	}

	for _, metric := range metrics {
		registry.MustRegister(metric)
	}

	return &MetricsCollector{
		registry: registry,
		metrics:  metrics,
		monitor:  monitor,
	}
}

// Registry returns the registry to expose over HTTP
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	if mc == nil {
		return prometheus.NewRegistry()
	}
	return mc.registry
}

// RecordMessage counts a chat message answered locally or remotely
func (mc *MetricsCollector) RecordMessage(route string) {
	if mc == nil {
		return
	}
	if counter, ok := mc.metrics["messages"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(route).Inc()
	}
	mc.mirror("messages_" + route)
}

// RecordAssistantCall records the outcome and latency of a remote call
func (mc *MetricsCollector) RecordAssistantCall(provider, outcome string, elapsed time.Duration) {
	if mc == nil {
		return
	}
	if counter, ok := mc.metrics["assistant_calls"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(provider, outcome).Inc()
	}
	if histogram, ok := mc.metrics["assistant_latency"].(*prometheus.HistogramVec); ok {
		histogram.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
	mc.mirror("assistant_" + outcome)
}

// RecordAction counts a reducer action
func (mc *MetricsCollector) RecordAction(action string, changed bool) {
	if mc == nil {
		return
	}
	if counter, ok := mc.metrics["actions"].(*prometheus.CounterVec); ok {
		label := "false"
		if changed {
			label = "true"
		}
		counter.WithLabelValues(action, label).Inc()
	}
	mc.mirror("action_" + action)
}

// RecordOrderConfirmed records a confirmed order
func (mc *MetricsCollector) RecordOrderConfirmed(orderID string, total int, deliveryType string) {
	if mc == nil {
		return
	}
	if counter, ok := mc.metrics["orders"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(deliveryType).Inc()
	}
	if histogram, ok := mc.metrics["order_value"].(prometheus.Histogram); ok {
		histogram.Observe(float64(total))
	}
	if mc.monitor != nil {
		mc.monitor.RecordOrder(orderID, total, deliveryType)
	}
}

// RecordStorageError counts a swallowed persistence failure
func (mc *MetricsCollector) RecordStorageError(operation string) {
	if mc == nil {
		return
	}
	if counter, ok := mc.metrics["storage_errors"].(*prometheus.CounterVec); ok {
		counter.WithLabelValues(operation).Inc()
	}
	mc.mirror("storage_errors")
}

// SetActiveSessions sets the number of live sessions
func (mc *MetricsCollector) SetActiveSessions(n int) {
	if mc == nil {
		return
	}
	if gauge, ok := mc.metrics["sessions"].(prometheus.Gauge); ok {
		gauge.Set(float64(n))
	}
	if mc.monitor != nil {
		mc.monitor.RecordMetric("active_sessions", n)
	}
}

func (mc *MetricsCollector) mirror(name string) {
	if mc.monitor != nil {
		mc.monitor.Increment(name)
	}
}
