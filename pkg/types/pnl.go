package types

import "time"

// PnLSnapshot is an append-only record of portfolio state at an instant.
type PnLSnapshot struct {
	ID             int64
	TakenAt        time.Time
	CashBalance    float64
	PositionValue  float64
	TotalEquity    float64
	RealizedPnl    float64
	UnrealizedPnl  float64
	TotalPnl       float64
	TradesToday    int
	FillRateToday  float64
	WinRateToday   float64
}
