// Package simexec is the simulated execution engine: limit-order
// lifecycle, fill inference against the latest cached orderbook, position
// math, risk gates, and the arbitrage pair-placement + partial-fill
// hedging path.
package simexec

import (
	"time"

	"go.uber.org/zap"

	"github.com/riftline/predictarb/internal/costmodel"
	"github.com/riftline/predictarb/internal/persistence"
)

// Config holds the execution engine's tunable thresholds; defaults mirror
// spec.md §4.C.
type Config struct {
	MinTick             float64
	NarrowSpreadBound   float64 // below this, improve each side by exactly MinTick
	TickImprovement     float64
	MaxBuyPrice         float64
	MinSellPrice        float64
	MinNotionalUSD      float64
	FastFillMaxAge      time.Duration
	SlowFillMaxAge      time.Duration
	MaxPositionQty      float64
	StopLossPct         float64
	BalancedTradeWindow time.Duration
	TrendWindow         time.Duration
	TrendDropPct        float64
	ArbitrageThreshold  float64
	MinArbSize          float64
	Cost                costmodel.Config
}

// DefaultConfig returns the spec's literal default thresholds.
func DefaultConfig() Config {
	return Config{
		MinTick:             0.001,
		NarrowSpreadBound:   0.005,
		TickImprovement:     0.01,
		MaxBuyPrice:         0.99,
		MinSellPrice:        0.01,
		MinNotionalUSD:      5.0,
		FastFillMaxAge:      30 * time.Second,
		SlowFillMaxAge:      5 * time.Minute,
		MaxPositionQty:      300,
		StopLossPct:         -0.05,
		BalancedTradeWindow: 10 * time.Minute,
		TrendWindow:         30 * time.Minute,
		TrendDropPct:        -0.05,
		ArbitrageThreshold:  0.995,
		MinArbSize:          10,
		Cost:                costmodel.DefaultConfig(),
	}
}

// Engine is the simulated execution engine. It holds no in-memory order
// state of its own — persisted orders/trades/positions are the source of
// truth, matching spec.md §5's "persisted rows are shared source of truth"
// policy.
type Engine struct {
	cfg        Config
	logger     *zap.Logger
	snapshots  *persistence.SnapshotRepository
	orders     *persistence.OrderRepository
	trades     *persistence.TradeRepository
	positions  *persistence.PositionRepository
	pool       *persistence.Pool
}

// New constructs an Engine wired to the given persistence repositories.
func New(cfg Config, logger *zap.Logger, pool *persistence.Pool, snapshots *persistence.SnapshotRepository, orders *persistence.OrderRepository, trades *persistence.TradeRepository, positions *persistence.PositionRepository) *Engine {
	return &Engine{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		snapshots: snapshots,
		orders:    orders,
		trades:    trades,
		positions: positions,
	}
}
