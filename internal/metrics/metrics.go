// Package metrics defines the prometheus collectors of the API server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "avina"

// Metrics holds every collector. A nil *Metrics records nothing.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	computeDuration *prometheus.HistogramVec
	quotaCache      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests by route, method and status code",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method", "code"},
		),
		computeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "accounting",
				Name:      "compute_duration_seconds",
				Help:      "Duration of cost, consumption and budget computations by operation and scope",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"operation", "scope"},
		),
		quotaCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quota",
				Name:      "cache_lookups_total",
				Help:      "Quota cache lookups by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.requestDuration, m.computeDuration, m.quotaCache)
	return m
}

// ObserveRequest records one finished HTTP request
func (m *Metrics) ObserveRequest(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(route, method, strconv.Itoa(code)).Observe(d.Seconds())
}

// ObserveCompute records one engine computation
func (m *Metrics) ObserveCompute(operation, scope string, d time.Duration) {
	if m == nil {
		return
	}
	m.computeDuration.WithLabelValues(operation, scope).Observe(d.Seconds())
}

// ObserveQuotaCache records a quota cache lookup
func (m *Metrics) ObserveQuotaCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.quotaCache.WithLabelValues(result).Inc()
}
