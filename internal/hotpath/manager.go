// Package hotpath fuses the shared hot-cache map and the fast-path
// arbitrage detector into one single-writer component: every PriceUpdate
// from internal/streaming is merged into the per-market HotPrices entry
// and evaluated for a crossed quote in the same goroutine, with the
// resulting order pair written in-line (intentional back-pressure).
package hotpath

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/riftline/predictarb/pkg/types"
)

// ArbitrageFirer is the narrow slice of internal/simexec.Engine the fast
// path depends on — fires an already-crossed, already-sized pair without
// re-reading the persisted orderbook.
type ArbitrageFirer interface {
	FireFastArbitrage(ctx context.Context, marketID string, yesBid, yesAsk, yesAskSize, noBid, noAsk, noAskSize, size float64) (yesOrderID, noOrderID string, err error)
}

// Config holds the fast path's tunables.
type Config struct {
	ArbitrageThreshold float64
	MinArbSize         float64
	DefaultTradeSize   float64
	RateLimit          time.Duration
}

// DefaultConfig returns the spec's literal fast-path defaults.
func DefaultConfig() Config {
	return Config{
		ArbitrageThreshold: 0.995,
		MinArbSize:         10,
		DefaultTradeSize:   50,
		RateLimit:          1000 * time.Millisecond,
	}
}

// executionRingCapacity bounds the fast path's ring of past executions at
// 100 samples, per spec.md §4.E.
const executionRingCapacity = 100

// executionRingWindow is the number of most recent executions the rolling
// average is taken over.
const executionRingWindow = 20

// executionSample is one recorded fast-path fire: detection latency (the
// threshold and rate-limit checks in tryArbitrage, before the DB call) and
// execution latency (the DB round trip), kept separate from the total.
type executionSample struct {
	detection time.Duration
	execution time.Duration
	total     time.Duration
}

// Manager is the single-writer hot cache + fast-path executor.
type Manager struct {
	cfg      Config
	logger   *zap.Logger
	executor ArbitrageFirer

	mu        sync.RWMutex
	cache     map[string]*types.HotPrices
	lastFired map[string]time.Time

	latencyMu sync.Mutex
	ring      [executionRingCapacity]executionSample
	ringNext  int
	ringLen   int
	execCount int
	minTotal  time.Duration
	maxTotal  time.Duration
}

// New constructs a Manager. executor is typically *internal/simexec.Engine.
func New(cfg Config, logger *zap.Logger, executor ArbitrageFirer) *Manager {
	return &Manager{
		cfg:       cfg,
		logger:    logger,
		executor:  executor,
		cache:     make(map[string]*types.HotPrices),
		lastFired: make(map[string]time.Time),
	}
}

// Run consumes updates until ctx is cancelled or the channel closes. This
// is the fast path's single writer goroutine — call it exactly once.
func (m *Manager) Run(ctx context.Context, updates <-chan types.PriceUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			m.Ingest(ctx, update)
		}
	}
}

// Ingest merges one PriceUpdate into the hot cache and, if both legs are
// now known and crossed, attempts to fire a fast-path arbitrage pair. Not
// safe for concurrent calls — see Run's single-writer contract.
func (m *Manager) Ingest(ctx context.Context, update types.PriceUpdate) {
	start := time.Now()
	defer func() { updateProcessingDuration.Observe(time.Since(start).Seconds()) }()

	updatesTotal.WithLabelValues(string(update.Outcome)).Inc()

	m.mu.Lock()
	prices, ok := m.cache[update.MarketID]
	if !ok {
		prices = &types.HotPrices{MarketID: update.MarketID}
		m.cache[update.MarketID] = prices
	}

	var askSize *float64
	if update.HasAskSize {
		s := update.AskSize
		askSize = &s
	}
	bid, ask := update.BestBid, update.BestAsk
	prices.MergeLeg(update.Outcome, &bid, &ask, askSize)
	prices.LastUpdate = update.Timestamp
	marketsTracked.Set(float64(len(m.cache)))

	if !prices.Ready() {
		m.mu.Unlock()
		return
	}

	snapshot := *prices
	m.mu.Unlock()

	m.tryArbitrage(ctx, snapshot)
}

// tryArbitrage evaluates a crossed-quote snapshot against the threshold
// and the per-market rate limit, firing at most once per RateLimit window.
func (m *Manager) tryArbitrage(ctx context.Context, prices types.HotPrices) {
	detectionStart := time.Now()

	combined := prices.YesAsk + prices.NoAsk
	if combined >= m.cfg.ArbitrageThreshold {
		return
	}

	m.mu.Lock()
	if last, ok := m.lastFired[prices.MarketID]; ok && time.Since(last) < m.cfg.RateLimit {
		m.mu.Unlock()
		opportunitiesRejectedTotal.WithLabelValues("rate_limited").Inc()
		return
	}
	m.lastFired[prices.MarketID] = time.Now()
	m.mu.Unlock()

	detectionLatency := time.Since(detectionStart)

	executionStart := time.Now()
	yesOrderID, noOrderID, err := m.executor.FireFastArbitrage(ctx, prices.MarketID,
		prices.YesBid, prices.YesAsk, prices.YesAskSize,
		prices.NoBid, prices.NoAsk, prices.NoAskSize,
		m.cfg.DefaultTradeSize)
	executionLatency := time.Since(executionStart)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrOpportunityEvaporated):
			opportunitiesRejectedTotal.WithLabelValues("evaporated").Inc()
		case errors.Is(err, types.ErrInsufficientLiquidity):
			opportunitiesRejectedTotal.WithLabelValues("insufficient_liquidity").Inc()
		default:
			m.logger.Error("fast-arbitrage-fire-failed", zap.String("component", "FAST-ARB"),
				zap.String("marketId", prices.MarketID), zap.Error(err))
			opportunitiesRejectedTotal.WithLabelValues("error").Inc()
		}
		return
	}

	opportunitiesFiredTotal.Inc()
	var totalLatency time.Duration
	if !prices.LastUpdate.IsZero() {
		totalLatency = time.Since(prices.LastUpdate)
		endToEndLatencySeconds.Observe(totalLatency.Seconds())
	} else {
		totalLatency = detectionLatency + executionLatency
	}
	m.recordExecution(detectionLatency, executionLatency, totalLatency)

	m.logger.Info("fast-arbitrage-fired", zap.String("component", "FAST-ARB"),
		zap.String("marketId", prices.MarketID), zap.String("yesOrderId", yesOrderID), zap.String("noOrderId", noOrderID),
		zap.Float64("combinedAsk", combined))
}

// recordExecution appends one execution sample to the bounded ring,
// overwriting the oldest entry once full, and updates the all-time min/max.
func (m *Manager) recordExecution(detection, execution, total time.Duration) {
	m.latencyMu.Lock()
	defer m.latencyMu.Unlock()

	m.ring[m.ringNext] = executionSample{detection: detection, execution: execution, total: total}
	m.ringNext = (m.ringNext + 1) % executionRingCapacity
	if m.ringLen < executionRingCapacity {
		m.ringLen++
	}
	m.execCount++

	if m.execCount == 1 || total < m.minTotal {
		m.minTotal = total
	}
	if m.execCount == 1 || total > m.maxTotal {
		m.maxTotal = total
	}
}

// LatencySummary returns the fast path's rolling latency summary: averages
// over the last 20 executions, all-time min/max total latency, and the
// last 10 total-latency samples for the dashboard (spec.md §4.E).
func (m *Manager) LatencySummary() types.LatencySummary {
	m.latencyMu.Lock()
	defer m.latencyMu.Unlock()

	summary := types.LatencySummary{
		MinTotalLatencyMs: durationMs(m.minTotal),
		MaxTotalLatencyMs: durationMs(m.maxTotal),
		SampleCount:       m.execCount,
	}
	if m.ringLen == 0 {
		return summary
	}

	window := m.ringLen
	if window > executionRingWindow {
		window = executionRingWindow
	}
	var sumDetection, sumExecution, sumTotal time.Duration
	idx := m.ringNext
	for i := 0; i < window; i++ {
		idx = (idx - 1 + executionRingCapacity) % executionRingCapacity
		s := m.ring[idx]
		sumDetection += s.detection
		sumExecution += s.execution
		sumTotal += s.total
	}
	summary.AvgDetectionLatencyMs20 = durationMs(sumDetection) / float64(window)
	summary.AvgExecutionLatencyMs20 = durationMs(sumExecution) / float64(window)
	summary.AvgTotalLatencyMs20 = durationMs(sumTotal) / float64(window)

	last10 := m.ringLen
	if last10 > 10 {
		last10 = 10
	}
	samples := make([]float64, last10)
	idx = m.ringNext
	for i := 0; i < last10; i++ {
		idx = (idx - 1 + executionRingCapacity) % executionRingCapacity
		samples[i] = durationMs(m.ring[idx].total)
	}
	summary.Last10TotalLatencyMs = samples

	return summary
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Snapshot returns a copy of the current HotPrices for marketID, if known.
func (m *Manager) Snapshot(marketID string) (types.HotPrices, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.cache[marketID]
	if !ok {
		return types.HotPrices{}, false
	}
	return *p, true
}

// TrackedMarkets returns the number of markets currently in the hot cache.
func (m *Manager) TrackedMarkets() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}
