package streaming

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictarb_stream_active_connections",
		Help: "Number of active market-data WebSocket connections",
	})

	reconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_stream_reconnect_attempts_total",
		Help: "Total number of reconnection attempts",
	})

	reconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "predictarb_stream_reconnect_failures_total",
		Help: "Total number of reconnection failures",
	})

	messagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_stream_messages_received_total",
			Help: "Total number of inbound WebSocket messages by event type",
		},
		[]string{"event_type"},
	)

	messagesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictarb_stream_messages_dropped_total",
			Help: "Total number of inbound messages dropped",
		},
		[]string{"reason"},
	)

	subscriptionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "predictarb_stream_subscription_count",
		Help: "Number of currently subscribed asset ids",
	})

	connectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "predictarb_stream_connection_duration_seconds",
		Help:    "Duration of WebSocket connections before disconnect",
		Buckets: []float64{30, 60, 300, 600, 1800, 3600, 7200, 14400},
	})
)
