package hotpath

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_hotpath_updates_total",
			Help: "Total number of price updates merged into the hot cache",
		},
		[]string{"outcome"},
	)

	marketsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictarb_hotpath_markets_tracked",
		Help: "Number of markets tracked in the hot cache",
	})

	updateProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictarb_hotpath_update_duration_seconds",
		Help:    "Time to merge a price update and evaluate fast-path arbitrage",
		Buckets: []float64{0.0001, 0.0002, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05},
	})

	opportunitiesFiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_hotpath_opportunities_fired_total",
		Help: "Total number of fast-path arbitrage pairs fired",
	})

	opportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_hotpath_opportunities_rejected_total",
			Help: "Total number of crossed quotes rejected before firing",
		},
		[]string{"reason"},
	)

	endToEndLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictarb_hotpath_e2e_latency_seconds",
		Help:    "Latency from price update receipt to fast-path order placement",
		Buckets: prometheus.DefBuckets,
	})
)
