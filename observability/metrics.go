package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ModuleMetrics records operation activity per vault module.
type ModuleMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *ModuleMetrics
)

// Metrics returns the lazily-initialised metrics registry used to record
// engine operation activity. Collectors register against the default
// prometheus registry exactly once.
func Metrics() *ModuleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &ModuleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vault",
				Subsystem: "module",
				Name:      "operations_total",
				Help:      "Total engine operations segmented by module, operation and outcome.",
			}, []string{"module", "operation", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vault",
				Subsystem: "module",
				Name:      "operation_errors_total",
				Help:      "Total failed engine operations segmented by module and operation.",
			}, []string{"module", "operation"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "vault",
				Subsystem: "module",
				Name:      "operation_duration_seconds",
				Help:      "Engine operation latency segmented by module and operation.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "operation"}),
		}
		prometheus.MustRegister(moduleRegistry.requests, moduleRegistry.errors, moduleRegistry.latency)
	})
	return moduleRegistry
}

// Observe records one completed operation.
func (m *ModuleMetrics) Observe(module, operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.errors.WithLabelValues(module, operation).Inc()
	}
	m.requests.WithLabelValues(module, operation, outcome).Inc()
	m.latency.WithLabelValues(module, operation).Observe(time.Since(started).Seconds())
}
