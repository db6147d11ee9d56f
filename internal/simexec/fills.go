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

// CheckFills iterates PENDING orders, fetches the latest orderbook for
// each order's leg, and fills BUY iff bestAsk <= orderPrice (at
// min(orderPrice, bestAsk)) or SELL iff bestBid >= orderPrice (at
// max(orderPrice, bestBid), only if the position holds enough quantity to
// avoid a synthetic short). It returns the count of orders filled.
func (e *Engine) CheckFills(ctx context.Context, maxPendingAge time.Duration) (int, error) {
	pending, err := e.orders.AllPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending orders: %w", err)
	}

	filled := 0
	for _, order := range pending {
		book, err := e.snapshots.LatestOrderBook(ctx, order.MarketID, order.TokenSide)
		if err != nil {
			continue // no book yet; leave PENDING, it will expire eventually.
		}

		didFill, fillPrice, err := e.tryFillOne(ctx, order, book)
		if err != nil {
			e.logger.Error("fill-check-failed", zap.String("component", "ORDER-FILLED"),
				zap.String("orderId", order.OrderID), zap.Error(err))
			continue
		}
		if didFill {
			filled++
			e.logger.Info("order-filled", zap.String("component", "ORDER-FILLED"),
				zap.String("orderId", order.OrderID), zap.Float64("fillPrice", fillPrice))
		}
	}

	expired, err := e.orders.ExpireOldPendingOrders(ctx, maxPendingAge)
	if err != nil {
		return filled, fmt.Errorf("expire old pending orders: %w", err)
	}
	if expired > 0 {
		e.logger.Info("orders-expired", zap.String("component", "ORDER-EXPIRED"), zap.Int64("count", expired))
	}
	return filled, nil
}

func (e *Engine) tryFillOne(ctx context.Context, order *types.Order, book *types.OrderBookSnapshot) (bool, float64, error) {
	var fillPrice float64
	switch order.Side {
	case types.SideBuy:
		if book.BestAskPrice > order.Price {
			return false, 0, nil
		}
		fillPrice = minf(order.Price, book.BestAskPrice)

	case types.SideSell:
		if book.BestBidPrice < order.Price {
			return false, 0, nil
		}
		pos, err := e.positions.Get(ctx, order.MarketID, order.TokenSide)
		if err != nil {
			return false, 0, fmt.Errorf("get position: %w", err)
		}
		if pos.Quantity < order.Size {
			return false, 0, nil // leave PENDING; no synthetic shorts here.
		}
		fillPrice = maxf(order.Price, book.BestBidPrice)
	}

	value := fillPrice * order.Size
	costs := e.cfg.Cost.Costs(value)
	netValue := costmodel.NetValue(value, order.Side, costs)

	err := e.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := e.orders.MarkFilled(ctx, tx, order.OrderID, fillPrice, order.Size); err != nil {
			return err
		}

		trade := &types.Trade{
			TradeID:   uuid.NewString(),
			OrderID:   order.OrderID,
			MarketID:  order.MarketID,
			Side:      order.Side,
			TokenSide: order.TokenSide,
			Price:     fillPrice,
			Size:      order.Size,
			Value:     value,
			Costs:     costs,
			NetValue:  netValue,
			FilledAt:  time.Now(),
		}
		if err := e.trades.Insert(ctx, tx, trade); err != nil {
			return err
		}

		pos, err := e.positions.Get(ctx, order.MarketID, order.TokenSide)
		if err != nil {
			return err
		}
		signedSize := order.Size
		if order.Side == types.SideSell {
			signedSize = -order.Size
		}
		newQty, newAvg, newBasis := applyTradeToPosition(pos.Quantity, pos.CostBasis, fillPrice, signedSize)
		return e.positions.Upsert(ctx, tx, order.MarketID, order.TokenSide, newQty, newAvg, newBasis, fillPrice)
	})
	if err != nil {
		return false, 0, err
	}
	return true, fillPrice, nil
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
