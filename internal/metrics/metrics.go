// Package metrics defines Prometheus metrics for creditgraph.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creditgraph_upstream_requests_total",
			Help: "Outbound catalog requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "creditgraph_upstream_request_duration_seconds",
			Help:    "Outbound catalog request duration, excluding rate limiter wait",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creditgraph_cache_requests_total",
			Help: "Track cache lookups by result",
		},
		[]string{"result"},
	)

	CacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creditgraph_cache_evictions_total",
			Help: "Track cache evictions by reason",
		},
		[]string{"reason"},
	)

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "creditgraph_cache_entries",
			Help: "Entries currently held in the track cache",
		},
	)

	UnmappedRoles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creditgraph_unmapped_roles_total",
			Help: "Relation types with no entry in the role table",
		},
		[]string{"source"},
	)

	AliasResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creditgraph_alias_resolutions_total",
			Help: "Artist identity resolutions by layer",
		},
		[]string{"layer"},
	)

	ImageLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "creditgraph_image_lookups_total",
			Help: "Image lookups by result",
		},
		[]string{"result"},
	)

	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "creditgraph_events_dropped_total",
			Help: "Events discarded because the bus buffer was full",
		},
	)

	AssemblyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "creditgraph_assembly_duration_seconds",
			Help:    "Graph assembly duration by entry point",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		UpstreamRequests, UpstreamDuration,
		CacheRequests, CacheEvictions, CacheEntries,
		UnmappedRoles, AliasResolutions, ImageLookups,
		AssemblyDuration, EventsDropped,
	)
}
