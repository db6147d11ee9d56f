package simexec

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/riftline/predictarb/internal/costmodel"
	"github.com/riftline/predictarb/pkg/types"
)

// PlaceArbitrageOrders re-verifies the crossing condition against the
// latest orderbooks for both legs and, if it still holds, inserts a BUY
// order on each leg at the opposing ask price inside one transaction. No
// risk gates apply — the pair is self-hedged by construction.
func (e *Engine) PlaceArbitrageOrders(ctx context.Context, marketID string, size float64) (yesOrderID, noOrderID string, err error) {
	yesBook, err := e.snapshots.LatestOrderBook(ctx, marketID, types.OutcomeYes)
	if err != nil {
		return "", "", fmt.Errorf("latest YES book: %w", types.ErrNoOrderBook)
	}
	noBook, err := e.snapshots.LatestOrderBook(ctx, marketID, types.OutcomeNo)
	if err != nil {
		return "", "", fmt.Errorf("latest NO book: %w", types.ErrNoOrderBook)
	}

	if yesBook.BestAskPrice+noBook.BestAskPrice >= e.cfg.ArbitrageThreshold {
		return "", "", types.ErrOpportunityEvaporated
	}

	actualSize := minf(size, minf(yesBook.BestAskSize, noBook.BestAskSize))
	if actualSize < e.cfg.MinArbSize {
		return "", "", types.ErrInsufficientLiquidity
	}

	return e.insertArbitragePair(ctx, marketID, yesBook.BestBidPrice, yesBook.BestAskPrice, yesBook.Spread,
		noBook.BestBidPrice, noBook.BestAskPrice, noBook.Spread, actualSize)
}

// FireFastArbitrage inserts a BUY pair using caller-supplied (already
// crossed, already rate-limited) best-ask prices instead of re-querying the
// persisted orderbook — the fast path's in-memory hot cache is fresher than
// the last persisted snapshot by design (see internal/hotpath).
func (e *Engine) FireFastArbitrage(ctx context.Context, marketID string, yesBid, yesAsk, yesAskSize, noBid, noAsk, noAskSize, size float64) (yesOrderID, noOrderID string, err error) {
	if yesAsk+noAsk >= e.cfg.ArbitrageThreshold {
		return "", "", types.ErrOpportunityEvaporated
	}
	actualSize := minf(size, minf(yesAskSize, noAskSize))
	if actualSize < e.cfg.MinArbSize {
		return "", "", types.ErrInsufficientLiquidity
	}
	return e.insertArbitragePair(ctx, marketID, yesBid, yesAsk, yesAsk-yesBid, noBid, noAsk, noAsk-noBid, actualSize)
}

// insertArbitragePair inserts both legs of the dual-BUY as already-FILLED
// orders, inserts their owning Trades, and upserts both Positions, all
// inside one transaction — the fast path records trades at the ask prices
// with no explicit fill step (spec.md §4.E).
func (e *Engine) insertArbitragePair(ctx context.Context, marketID string, yesBid, yesAsk, yesSpread, noBid, noAsk, noSpread, size float64) (yesOrderID, noOrderID string, err error) {
	yesOrderID = uuid.NewString()
	noOrderID = uuid.NewString()
	now := time.Now()

	yesOrder := &types.Order{
		OrderID: yesOrderID, MarketID: marketID, Side: types.SideBuy, TokenSide: types.OutcomeYes,
		Price: yesAsk, Size: size, Status: types.OrderFilled,
		PlacedBestBid: yesBid, PlacedBestAsk: yesAsk,
		PlacedSpread: yesSpread, CreatedAt: now, UpdatedAt: now,
		FillPrice: &yesAsk, FillSize: &size,
	}
	noOrder := &types.Order{
		OrderID: noOrderID, MarketID: marketID, Side: types.SideBuy, TokenSide: types.OutcomeNo,
		Price: noAsk, Size: size, Status: types.OrderFilled,
		PlacedBestBid: noBid, PlacedBestAsk: noAsk,
		PlacedSpread: noSpread, CreatedAt: now, UpdatedAt: now,
		FillPrice: &noAsk, FillSize: &size,
	}

	yesValue := yesAsk * size
	yesCosts := e.cfg.Cost.Costs(yesValue)
	yesTrade := &types.Trade{
		TradeID: uuid.NewString(), OrderID: yesOrderID, MarketID: marketID,
		Side: types.SideBuy, TokenSide: types.OutcomeYes, Price: yesAsk, Size: size,
		Value: yesValue, Costs: yesCosts, NetValue: costmodel.NetValue(yesValue, types.SideBuy, yesCosts),
		FilledAt: now,
	}
	noValue := noAsk * size
	noCosts := e.cfg.Cost.Costs(noValue)
	noTrade := &types.Trade{
		TradeID: uuid.NewString(), OrderID: noOrderID, MarketID: marketID,
		Side: types.SideBuy, TokenSide: types.OutcomeNo, Price: noAsk, Size: size,
		Value: noValue, Costs: noCosts, NetValue: costmodel.NetValue(noValue, types.SideBuy, noCosts),
		FilledAt: now,
	}

	err = e.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := e.orders.InsertFilled(ctx, tx, yesOrder); err != nil {
			return err
		}
		if err := e.orders.InsertFilled(ctx, tx, noOrder); err != nil {
			return err
		}
		if err := e.trades.Insert(ctx, tx, yesTrade); err != nil {
			return err
		}
		if err := e.trades.Insert(ctx, tx, noTrade); err != nil {
			return err
		}

		yesPos, err := e.positions.Get(ctx, marketID, types.OutcomeYes)
		if err != nil {
			return fmt.Errorf("get yes position: %w", err)
		}
		yesQty, yesAvg, yesBasis := applyTradeToPosition(yesPos.Quantity, yesPos.CostBasis, yesAsk, size)
		if err := e.positions.Upsert(ctx, tx, marketID, types.OutcomeYes, yesQty, yesAvg, yesBasis, yesAsk); err != nil {
			return err
		}

		noPos, err := e.positions.Get(ctx, marketID, types.OutcomeNo)
		if err != nil {
			return fmt.Errorf("get no position: %w", err)
		}
		noQty, noAvg, noBasis := applyTradeToPosition(noPos.Quantity, noPos.CostBasis, noAsk, size)
		return e.positions.Upsert(ctx, tx, marketID, types.OutcomeNo, noQty, noAvg, noBasis, noAsk)
	})
	if err != nil {
		return "", "", fmt.Errorf("insert arbitrage pair: %w", err)
	}

	e.logger.Info("arbitrage-orders-placed", zap.String("component", "FAST-ARB"),
		zap.String("marketId", marketID), zap.Float64("size", size))
	return yesOrderID, noOrderID, nil
}

// HandlePartialArbitrageFills compares current YES/NO quantities for each
// market; when they differ by more than 0.01, sells the excess leg at its
// current best bid. Markets with no available bid are skipped.
func (e *Engine) HandlePartialArbitrageFills(ctx context.Context, marketIDs []string) error {
	for _, marketID := range marketIDs {
		yesPos, err := e.positions.Get(ctx, marketID, types.OutcomeYes)
		if err != nil {
			continue
		}
		noPos, err := e.positions.Get(ctx, marketID, types.OutcomeNo)
		if err != nil {
			continue
		}

		diff := yesPos.Quantity - noPos.Quantity
		if absf(diff) <= 0.01 {
			continue
		}

		excessSide := types.OutcomeYes
		excessQty := diff
		if diff < 0 {
			excessSide = types.OutcomeNo
			excessQty = -diff
		}

		book, err := e.snapshots.LatestOrderBook(ctx, marketID, excessSide)
		if err != nil || book.BestBidPrice <= 0 {
			e.logger.Warn("partial-fill-hedge-no-bid", zap.String("component", "FAST-ARB"),
				zap.String("marketId", marketID), zap.String("leg", string(excessSide)))
			continue
		}

		if _, err := e.PlaceOrder(ctx, marketID, types.SideSell, excessSide, book.BestBidPrice, excessQty, book.BestBidPrice, book.BestAskPrice); err != nil {
			e.logger.Error("partial-fill-hedge-failed", zap.String("component", "FAST-ARB"),
				zap.String("marketId", marketID), zap.Error(err))
			continue
		}
		e.logger.Info("partial-fill-hedged", zap.String("component", "FAST-ARB"),
			zap.String("marketId", marketID), zap.String("leg", string(excessSide)), zap.Float64("size", excessQty))
	}
	return nil
}
