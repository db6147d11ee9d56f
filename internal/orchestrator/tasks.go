package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/riftline/predictarb/pkg/types"
)

// reseedThreshold is the minimum number of active paper markets the
// hourly maintenance task tolerates before re-seeding.
const reseedThreshold = 3

// maxPendingOrderAge mirrors internal/simexec's default fast-fill bound;
// the orchestrator does not own the engine's Config, so the market-making
// cycle's fill-check sweep uses the same documented default directly.
const maxPendingOrderAge = 30 * time.Second

// staleOpportunityAge is how long an opportunity can go un-reobserved by
// internal/batchdetect before the hourly maintenance task expires it.
const staleOpportunityAge = time.Hour

// startPeriodicTasks launches one ticker-driven goroutine per task in
// spec.md §4.G's table. Each ticker is recorded on o.tickers so Shutdown
// can stop all seven deterministically.
func (o *Orchestrator) startPeriodicTasks() {
	o.launch("buffer-flush", o.cfg.BufferFlushPeriod, o.flushBuffer)
	o.launch("subscription-refresh", o.cfg.SubscriptionRefresh, o.refreshSubscriptions)
	o.launch("batch-detection", o.cfg.BatchDetectionPeriod, o.runBatchDetection)
	o.launch("pnl-snapshot", o.cfg.PnLSnapshotPeriod, o.recordPnLSnapshot)
	o.launch("market-making-cycle", o.cfg.MarketMakingPeriod, o.runMarketMakingCycle)
	o.launch("dashboard", o.cfg.DashboardPeriod, o.refreshDashboard)
	o.launch("maintenance", o.cfg.MaintenancePeriod, o.runMaintenance)
}

func (o *Orchestrator) launch(name string, period time.Duration, task func(ctx context.Context) error) {
	ticker := time.NewTicker(period)
	o.tickers = append(o.tickers, ticker)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-o.ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := task(o.ctx); err != nil {
					taskErrorsTotal.WithLabelValues(name).Inc()
					o.logger.Error("periodic-task-failed", zap.String("task", name), zap.Error(err))
					continue
				}
				taskDurationSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
			}
		}
	}()
}

// flushBuffer drains the in-memory update buffer into persistence. On
// failure the drained batch is re-prepended, capped at maxBufferedUpdates,
// for the next attempt (spec.md §7).
func (o *Orchestrator) flushBuffer(ctx context.Context) error {
	o.bufMu.Lock()
	if len(o.buf) == 0 {
		o.bufMu.Unlock()
		return nil
	}
	batch := o.buf
	o.buf = nil
	o.bufMu.Unlock()

	if err := o.repos.Snapshots.BatchInsertWSUpdates(ctx, batch, time.Now()); err != nil {
		o.bufMu.Lock()
		merged := append(batch, o.buf...)
		if len(merged) > maxBufferedUpdates {
			merged = merged[len(merged)-maxBufferedUpdates:]
		}
		o.buf = merged
		o.bufMu.Unlock()
		return err
	}

	bufferFlushedTotal.Add(float64(len(batch)))
	return nil
}

// refreshSubscriptions re-asserts the streaming subscription for every
// market discovery currently tracks, guarding against a dropped
// subscribe call drifting the two components out of sync.
func (o *Orchestrator) refreshSubscriptions(ctx context.Context) error {
	for _, market := range o.discovery.GetSubscribedMarkets() {
		o.subscribeToMarket(market)
	}
	return nil
}

// runBatchDetection runs internal/batchdetect's five SQL detectors and
// seeds a paper-trading market for any market carrying a fresh ARBITRAGE
// opportunity this pass.
func (o *Orchestrator) runBatchDetection(ctx context.Context) error {
	arbitrageMarkets, err := o.detector.RunOnce(ctx)
	if err != nil {
		return err
	}
	for _, marketID := range arbitrageMarkets {
		if err := o.repos.PaperMarkets.Add(ctx, marketID, "ARBITRAGE"); err != nil {
			o.logger.Warn("add-arbitrage-paper-market-failed", zap.String("marketId", marketID), zap.Error(err))
		}
	}
	return nil
}

// recordPnLSnapshot computes the current portfolio state and inserts a
// PnLSnapshot row. Cash balance follows the cash-flow definition resolved
// in the project's open-question log: initialCapital + Σ trades.netValue,
// with realized P&L taken as zero while positions remain open.
func (o *Orchestrator) recordPnLSnapshot(ctx context.Context) error {
	positionValue, err := o.repos.Positions.TotalMarketValue(ctx)
	if err != nil {
		return err
	}
	unrealizedPnl, err := o.repos.Positions.TotalUnrealizedPnl(ctx)
	if err != nil {
		return err
	}
	netValue, err := o.repos.Trades.SumNetValue(ctx)
	if err != nil {
		return err
	}
	tradesToday, err := o.repos.Trades.CountToday(ctx)
	if err != nil {
		return err
	}
	winRateToday, err := o.repos.Trades.WinRateToday(ctx)
	if err != nil {
		return err
	}
	pending, err := o.repos.Orders.AllPending(ctx)
	if err != nil {
		return err
	}

	cashBalance := o.cfg.InitialCapital + netValue
	totalEquity := cashBalance + positionValue

	fillRateToday := 0.0
	if denom := tradesToday + len(pending); denom > 0 {
		fillRateToday = float64(tradesToday) / float64(denom)
	}

	snapshot := &types.PnLSnapshot{
		TakenAt:       time.Now(),
		CashBalance:   cashBalance,
		PositionValue: positionValue,
		TotalEquity:   totalEquity,
		RealizedPnl:   0,
		UnrealizedPnl: unrealizedPnl,
		TotalPnl:      unrealizedPnl,
		TradesToday:   tradesToday,
		FillRateToday: fillRateToday,
		WinRateToday:  winRateToday,
	}
	return o.repos.PnL.Insert(ctx, snapshot)
}

// runMarketMakingCycle processes arbitrage paper markets first (the
// self-hedged arb path plus partial-fill hedging), then standard paper
// markets (the tick-improved quote path on both legs), and runs one
// fill-check sweep over every pending order.
func (o *Orchestrator) runMarketMakingCycle(ctx context.Context) error {
	arbitrageMarkets, err := o.repos.PaperMarkets.ArbitrageMarkets(ctx)
	if err != nil {
		return err
	}
	arbSet := make(map[string]bool, len(arbitrageMarkets))
	for _, marketID := range arbitrageMarkets {
		arbSet[marketID] = true
		if _, _, err := o.engine.PlaceArbitrageOrders(ctx, marketID, o.cfg.ArbOrderSize); err != nil {
			o.logger.Debug("arbitrage-cycle-skip", zap.String("marketId", marketID), zap.Error(err))
		}
	}
	if len(arbitrageMarkets) > 0 {
		if err := o.engine.HandlePartialArbitrageFills(ctx, arbitrageMarkets); err != nil {
			o.logger.Warn("handle-partial-arbitrage-fills-failed", zap.Error(err))
		}
	}

	active, err := o.repos.PaperMarkets.Active(ctx)
	if err != nil {
		return err
	}
	for _, market := range active {
		if arbSet[market.MarketID] {
			continue
		}
		for _, side := range []types.Outcome{types.OutcomeYes, types.OutcomeNo} {
			if _, err := o.engine.PlaceMarketMakingOrders(ctx, market.MarketID, side, o.cfg.ArbOrderSize); err != nil {
				o.logger.Debug("market-making-cycle-skip", zap.String("marketId", market.MarketID),
					zap.String("side", string(side)), zap.Error(err))
			}
		}
	}

	if _, err := o.engine.CheckFills(ctx, maxPendingOrderAge); err != nil {
		return err
	}
	return nil
}

// refreshDashboard rebuilds the in-memory StatusSnapshot served by
// pkg/httpserver's /api/status endpoint. This replaces the excluded
// terminal dashboard renderer with the one concern (periodic status
// summary) kept in scope.
func (o *Orchestrator) refreshDashboard(ctx context.Context) error {
	active, err := o.repos.PaperMarkets.Active(ctx)
	if err != nil {
		return err
	}
	pending, err := o.repos.Orders.AllPending(ctx)
	if err != nil {
		return err
	}

	snapshot := types.StatusSnapshot{
		UpdatedAt:          time.Now(),
		MarketsTracked:     o.hotpath.TrackedMarkets(),
		ActivePaperMarkets: len(active),
		PendingOrders:      len(pending),
		FastPathLatency:    o.hotpath.LatencySummary(),
	}

	if latest, err := o.repos.PnL.Latest(ctx); err == nil && latest != nil {
		snapshot.TotalEquity = latest.TotalEquity
		snapshot.TotalPnl = latest.TotalPnl
		snapshot.UnrealizedPnl = latest.UnrealizedPnl
		snapshot.TradesToday = latest.TradesToday
	}

	o.statusMu.Lock()
	o.status = snapshot
	o.statusMu.Unlock()
	return nil
}

// runMaintenance expires stale opportunities and re-seeds the paper book
// if it has fallen below reseedThreshold active markets.
func (o *Orchestrator) runMaintenance(ctx context.Context) error {
	expired, err := o.repos.Opportunities.ExpireStale(ctx, staleOpportunityAge)
	if err != nil {
		return err
	}
	if expired > 0 {
		o.logger.Info("opportunities-expired", zap.Int64("count", expired))
	}

	count, err := o.repos.PaperMarkets.Count(ctx)
	if err != nil {
		return err
	}
	if count < reseedThreshold {
		o.logger.Info("paper-book-underpopulated-reseeding", zap.Int("count", count))
		return o.seedMarkets(ctx)
	}
	return nil
}
