// Package metrics holds the prometheus collectors shared by the transport and
// the mapping layer. All methods are safe to call on a nil *Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "omeka"

// Metrics contains the collectors for one session.
type Metrics struct {
	Requests          *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	CacheLookups      *prometheus.CounterVec
	ItemsMaterialized *prometheus.CounterVec
	UnsupportedValues *prometheus.CounterVec
}

// New creates an unregistered Metrics instance.
func New() *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "requests_total",
				Help:      "Total number of API requests by method and status code (0 = no response)",
			},
			[]string{"method", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Cache lookups by cache name and result (hit, miss)",
			},
			[]string{"cache", "result"},
		),

		ItemsMaterialized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "items",
				Name:      "materialized_total",
				Help:      "Items converted from their wire representation, by resolution mode",
			},
			[]string{"mode"},
		),

		UnsupportedValues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "items",
				Name:      "unsupported_values_total",
				Help:      "Values with an unrecognized type tag that were handled as literals",
			},
			[]string{"type"},
		),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil || reg == nil {
		return nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Requests,
		m.RequestDuration,
		m.CacheLookups,
		m.ItemsMaterialized,
		m.UnsupportedValues,
	}
}

// ObserveRequest records one API round trip.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

// ObserveMaterialized records an item fill.
func (m *Metrics) ObserveMaterialized(deep bool) {
	if m == nil {
		return
	}
	mode := "shallow"
	if deep {
		mode = "deep"
	}
	m.ItemsMaterialized.WithLabelValues(mode).Inc()
}

// ObserveUnsupported records a value handled through the literal fallback.
func (m *Metrics) ObserveUnsupported(typeTag string) {
	if m == nil {
		return
	}
	m.UnsupportedValues.WithLabelValues(typeTag).Inc()
}
