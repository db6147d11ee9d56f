package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	taskDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predictarb_orchestrator_task_duration_seconds",
			Help:    "Duration of one periodic task run",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task"},
	)

	taskErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_orchestrator_task_errors_total",
			Help: "Total number of periodic task runs that returned an error",
		},
		[]string{"task"},
	)

	bufferFlushedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_orchestrator_buffer_flushed_total",
		Help: "Total number of price updates drained from the flush buffer into persistence",
	})

	overflowDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_orchestrator_buffer_overflow_dropped_total",
		Help: "Total number of price updates dropped because the flush buffer was at capacity",
	})
)
