package types

import "time"

// OpportunityType is the closed set of kinds the batch detector classifies.
type OpportunityType string

const (
	OpportunityArbitrage  OpportunityType = "ARBITRAGE"
	OpportunityWideSpread OpportunityType = "WIDE_SPREAD"
	OpportunityVolumeSpike OpportunityType = "VOLUME_SPIKE"
	OpportunityThinBook   OpportunityType = "THIN_BOOK"
	OpportunityMispricing OpportunityType = "MISPRICING"
)

// Opportunity is a detected condition on a market. At most one row per
// (MarketID, Type) may have StillActive = true at any instant.
type Opportunity struct {
	ID                   int64
	Type                 OpportunityType
	MarketID             string
	DetectedAt           time.Time
	YesNoSum             float64
	SpreadPercent        float64
	AvailableLiquidity   float64
	MarketVolume         float64
	TheoreticalProfitUSD float64
	StillActive          bool
	ExpiredAt            *time.Time
	DurationSeconds      *int64
}
