package types

import "time"

// Position is keyed by (MarketID, TokenSide). Quantity is signed: positive
// is long, negative is short. The row is created on first trade and
// persists (dormant) at Quantity = 0.
type Position struct {
	MarketID         string
	TokenSide        Outcome
	Quantity         float64
	AverageCost      float64
	CostBasis        float64
	CurrentPrice     float64
	MarketValue      float64
	UnrealizedPnl    float64
	UnrealizedPnlPct *float64
	UpdatedAt        time.Time
}
