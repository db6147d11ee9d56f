package simexec

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/riftline/predictarb/pkg/types"
)

// PlaceOrder generates a unique order id and inserts a PENDING row. No fill
// logic runs here.
func (e *Engine) PlaceOrder(ctx context.Context, marketID string, side types.Side, tokenSide types.Outcome, price, size, bestBid, bestAsk float64) (string, error) {
	order := &types.Order{
		OrderID:       uuid.NewString(),
		MarketID:      marketID,
		Side:          side,
		TokenSide:     tokenSide,
		Price:         price,
		Size:          size,
		Status:        types.OrderPending,
		PlacedBestBid: bestBid,
		PlacedBestAsk: bestAsk,
		PlacedSpread:  bestAsk - bestBid,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	err := e.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return e.orders.Insert(ctx, tx, order)
	})
	if err != nil {
		return "", fmt.Errorf("place order: %w", err)
	}
	return order.OrderID, nil
}

// MarketMakingResult is the outcome of one placeMarketMakingOrders call.
type MarketMakingResult struct {
	BuyOrderID  string
	SellOrderID string
}

// PlaceMarketMakingOrders computes a tick-improved quote around the latest
// orderbook and places BUY/SELL orders subject to the risk gates (BUY
// only — SELL is always attempted).
func (e *Engine) PlaceMarketMakingOrders(ctx context.Context, marketID string, tokenSide types.Outcome, size float64) (MarketMakingResult, error) {
	var result MarketMakingResult

	book, err := e.snapshots.LatestOrderBook(ctx, marketID, tokenSide)
	if err != nil {
		return result, fmt.Errorf("latest orderbook for %s/%s: %w", marketID, tokenSide, types.ErrNoOrderBook)
	}

	bid, ask := e.tickImprove(book.BestBidPrice, book.BestAskPrice, book.Spread)
	if ask <= bid {
		e.logger.Debug("market-making-skip-crossed-quote", zap.String("component", "RISK"),
			zap.String("marketId", marketID), zap.Float64("bid", bid), zap.Float64("ask", ask))
		return result, nil
	}

	if size*book.BestBidPrice < e.cfg.MinNotionalUSD {
		e.logger.Debug("market-making-skip-notional-too-small", zap.String("component", "RISK"),
			zap.String("marketId", marketID))
		return result, nil
	}

	if allowed, reason := e.checkRiskGates(ctx, marketID, tokenSide, book); allowed {
		orderID, err := e.PlaceOrder(ctx, marketID, types.SideBuy, tokenSide, bid, size, book.BestBidPrice, book.BestAskPrice)
		if err != nil {
			return result, fmt.Errorf("place buy: %w", err)
		}
		result.BuyOrderID = orderID
	} else {
		e.logger.Info("market-making-buy-blocked", zap.String("component", "RISK"),
			zap.String("marketId", marketID), zap.String("reason", reason))
	}

	sellOrderID, err := e.PlaceOrder(ctx, marketID, types.SideSell, tokenSide, ask, size, book.BestBidPrice, book.BestAskPrice)
	if err != nil {
		return result, fmt.Errorf("place sell: %w", err)
	}
	result.SellOrderID = sellOrderID
	return result, nil
}

// tickImprove computes the improved bid/ask per spec.md §4.C's three-tier
// tick rule, capping buy at 0.99 and flooring sell at 0.01.
func (e *Engine) tickImprove(bestBid, bestAsk, spread float64) (bid, ask float64) {
	switch {
	case spread <= e.cfg.MinTick:
		bid, ask = bestBid, bestAsk
	case spread < e.cfg.NarrowSpreadBound:
		bid, ask = bestBid+e.cfg.MinTick, bestAsk-e.cfg.MinTick
	default:
		adjusted := clamp(e.cfg.TickImprovement, e.cfg.MinTick, 0.4*spread)
		bid, ask = bestBid+adjusted, bestAsk-adjusted
	}
	if bid > e.cfg.MaxBuyPrice {
		bid = e.cfg.MaxBuyPrice
	}
	if ask < e.cfg.MinSellPrice {
		ask = e.cfg.MinSellPrice
	}
	return bid, ask
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// checkRiskGates applies the four BUY-only gates from spec.md §4.C. The
// SELL path never calls this.
func (e *Engine) checkRiskGates(ctx context.Context, marketID string, tokenSide types.Outcome, book *types.OrderBookSnapshot) (bool, string) {
	pos, err := e.positions.Get(ctx, marketID, tokenSide)
	if err != nil {
		return false, "position-lookup-failed"
	}

	if pos.Quantity >= e.cfg.MaxPositionQty {
		return false, "position-cap"
	}

	if pos.Quantity > 0 && pos.UnrealizedPnlPct != nil && *pos.UnrealizedPnlPct < e.cfg.StopLossPct {
		return false, "stop-loss"
	}

	if pos.Quantity != 0 {
		lastSell, err := e.positions.LastSellAt(ctx, marketID, tokenSide)
		if err == nil && (!lastSell.Valid || time.Since(lastSell.Time) >= e.cfg.BalancedTradeWindow) {
			return false, "balanced-trading"
		}
	}

	priorMid, err := e.snapshots.MidPriceNMinutesAgo(ctx, marketID, tokenSide, e.cfg.TrendWindow)
	if err == nil && priorMid > 0 {
		currentMid := (book.BestBidPrice + book.BestAskPrice) / 2
		drop := (currentMid - priorMid) / priorMid
		if drop < e.cfg.TrendDropPct {
			return false, "trend-filter"
		}
	}

	return true, ""
}
