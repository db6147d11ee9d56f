package batchdetect

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	candidatesFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_batchdetect_candidates_found_total",
			Help: "Total candidates found per detector kind in a pass",
		},
		[]string{"kind"},
	)

	passDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predictarb_batchdetect_pass_duration_seconds",
			Help:    "Duration of a single detector-kind query",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	passErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_batchdetect_pass_errors_total",
			Help: "Total query errors per detector kind",
		},
		[]string{"kind"},
	)

	activeOpportunities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "predictarb_batchdetect_active_opportunities",
			Help: "Active opportunities upserted in the last pass, by kind",
		},
		[]string{"kind"},
	)
)
