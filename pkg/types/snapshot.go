package types

import "time"

// MarketSnapshot is one persisted row per (marketId, scanTimestamp).
type MarketSnapshot struct {
	ID            int64
	MarketID      string
	ScanTimestamp time.Time
	Volume24h     float64
	Active        bool
}

// OrderBookSnapshot is one persisted row per (marketSnapshotId, tokenSide,
// scanTimestamp); uniqueness is on (marketId, tokenSide, scanTimestamp) so
// streaming upserts are idempotent.
type OrderBookSnapshot struct {
	ID               int64
	MarketSnapshotID int64
	MarketID         string
	TokenSide        Outcome
	ScanTimestamp    time.Time
	BestBidPrice     float64
	BestBidSize      float64
	BestAskPrice     float64
	BestAskSize      float64
	Spread           float64
	Mid              float64
}
