package types

import "time"

// StatusSnapshot is a read-only point-in-time summary of the running
// engine, refreshed periodically by the orchestrator's dashboard task and
// served over HTTP. It never carries component handles — only values —
// per the "dashboard receives snapshots, not handles" redesign.
type StatusSnapshot struct {
	UpdatedAt          time.Time
	MarketsTracked     int
	ActivePaperMarkets int
	PendingOrders      int
	TradesToday        int
	TotalEquity        float64
	TotalPnl           float64
	UnrealizedPnl      float64
	FastPathLatency    LatencySummary
}
