// Package metrics holds the prometheus collectors of the resource store.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resource_store"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ReindexClaims   *prometheus.CounterVec
	ReindexDuration *prometheus.HistogramVec
	EraseResults    *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	Writes          *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReindexClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_claims_total",
			Help:      "Reindex claim attempts by result",
		}, []string{"result"}),
		ReindexDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reindex_duration_seconds",
			Help:      "Time spent reindexing one resource",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"resource_type"}),
		EraseResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "erase_results_total",
			Help:      "Erase operations by resulting status",
		}, []string{"status"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Identity cache lookups by cache and outcome",
		}, []string{"cache", "outcome"}),
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_writes_total",
			Help:      "Resource versions written by resource type and change type",
		}, []string{"resource_type", "change_type"}),
	}
	if reg != nil {
		reg.MustRegister(m.ReindexClaims, m.ReindexDuration, m.EraseResults, m.CacheLookups, m.Writes)
	}
	return m
}

// ObserveLookup records a cache hit or miss.
func (m *Metrics) ObserveLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, outcome).Inc()
}

// ReindexClaim records the result of one claim attempt.
func (m *Metrics) ReindexClaim(result string) {
	if m == nil {
		return
	}
	m.ReindexClaims.WithLabelValues(result).Inc()
}

// ReindexDone records the time spent reindexing a resource of resourceType.
func (m *Metrics) ReindexDone(resourceType string, start time.Time) {
	if m == nil {
		return
	}
	m.ReindexDuration.WithLabelValues(resourceType).Observe(time.Since(start).Seconds())
}

// Erase records an erase outcome.
func (m *Metrics) Erase(status string) {
	if m == nil {
		return
	}
	m.EraseResults.WithLabelValues(status).Inc()
}

// Write records a new resource version.
func (m *Metrics) Write(resourceType, changeType string) {
	if m == nil {
		return
	}
	m.Writes.WithLabelValues(resourceType, changeType).Inc()
}
