package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsDiscoveredTotal tracks total markets discovered.
	MarketsDiscoveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_discovery_markets_total",
		Help: "Total number of markets discovered from the catalog API",
	})

	// NewMarketsTotal tracks new markets subscribed.
	NewMarketsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_discovery_new_markets_total",
		Help: "Total number of new markets subscribed",
	})

	// PollDurationSeconds tracks API poll latency.
	PollDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictarb_discovery_poll_duration_seconds",
		Help:    "Duration of catalog API poll requests",
		Buckets: prometheus.DefBuckets,
	})

	// PollErrorsTotal tracks API poll failures.
	PollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_discovery_poll_errors_total",
		Help: "Total number of catalog API poll failures",
	})

	// MarketsFilteredByEndDateTotal tracks markets skipped for expiring too
	// far in the future.
	MarketsFilteredByEndDateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_discovery_markets_filtered_end_date_total",
		Help: "Total number of markets filtered out by end-date window",
	})

	// MetadataCacheHitsTotal tracks tick-size cache hits.
	MetadataCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_discovery_metadata_cache_hits_total",
		Help: "Total number of token metadata cache hits",
	})

	// MetadataCacheMissesTotal tracks tick-size cache misses.
	MetadataCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_discovery_metadata_cache_misses_total",
		Help: "Total number of token metadata cache misses",
	})

	// MetadataFetchDuration tracks CLOB metadata fetch latency.
	MetadataFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictarb_discovery_metadata_fetch_duration_seconds",
		Help:    "Duration of CLOB token metadata fetches",
		Buckets: prometheus.DefBuckets,
	})

	// MetadataFetchErrorsTotal tracks CLOB metadata fetch failures.
	MetadataFetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_discovery_metadata_fetch_errors_total",
		Help: "Total number of CLOB token metadata fetch failures",
	})
)
