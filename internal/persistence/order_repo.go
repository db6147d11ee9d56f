package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riftline/predictarb/pkg/types"
)

// OrderRepository is the typed repository over simulated orders.
type OrderRepository struct {
	pool *Pool
}

// NewOrderRepository constructs an OrderRepository over pool.
func NewOrderRepository(pool *Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Insert inserts a new PENDING order. No fill logic runs here — fills are
// inferred later so the simulator never looks into the future.
func (r *OrderRepository) Insert(ctx context.Context, execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, o *types.Order) error {
	_, err := execer.ExecContext(ctx, `
		INSERT INTO paper_orders
			(order_id, market_id, side, token_side, price, size, status,
			 placed_best_bid, placed_best_ask, placed_spread, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`, o.OrderID, o.MarketID, string(o.Side), string(o.TokenSide), o.Price, o.Size, string(o.Status),
		o.PlacedBestBid, o.PlacedBestAsk, o.PlacedSpread, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.OrderID, err)
	}
	return nil
}

// InsertFilled inserts an order that is already FILLED at insertion time —
// used by the fast arbitrage path, which records trades at the ask prices
// with no explicit fill step (spec.md §4.E). Must be called inside the
// same transaction that inserts the owning Trade and upserts the Position.
func (r *OrderRepository) InsertFilled(ctx context.Context, tx *sql.Tx, o *types.Order) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO paper_orders
			(order_id, market_id, side, token_side, price, size, status,
			 placed_best_bid, placed_best_ask, placed_spread, created_at, updated_at,
			 fill_price, fill_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11, $12, $13)
	`, o.OrderID, o.MarketID, string(o.Side), string(o.TokenSide), o.Price, o.Size, string(o.Status),
		o.PlacedBestBid, o.PlacedBestAsk, o.PlacedSpread, o.CreatedAt, o.FillPrice, o.FillSize)
	if err != nil {
		return fmt.Errorf("insert filled order %s: %w", o.OrderID, err)
	}
	return nil
}

// PendingByMarketTokenSide returns all PENDING orders for (marketID,
// tokenSide).
func (r *OrderRepository) PendingByMarketTokenSide(ctx context.Context, marketID string, tokenSide types.Outcome) ([]*types.Order, error) {
	return r.queryOrders(ctx, `
		SELECT order_id, market_id, side, token_side, price, size, status,
		       placed_best_bid, placed_best_ask, placed_spread, created_at, updated_at, fill_price, fill_size
		FROM paper_orders
		WHERE market_id = $1 AND token_side = $2 AND status = 'PENDING'
	`, marketID, string(tokenSide))
}

// AllPending returns every PENDING order, used by checkFills.
func (r *OrderRepository) AllPending(ctx context.Context) ([]*types.Order, error) {
	return r.queryOrders(ctx, `
		SELECT order_id, market_id, side, token_side, price, size, status,
		       placed_best_bid, placed_best_ask, placed_spread, created_at, updated_at, fill_price, fill_size
		FROM paper_orders
		WHERE status = 'PENDING'
	`)
}

func (r *OrderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*types.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []*types.Order
	for rows.Next() {
		var o types.Order
		var side, tokenSide, status string
		if err := rows.Scan(&o.OrderID, &o.MarketID, &side, &tokenSide, &o.Price, &o.Size, &status,
			&o.PlacedBestBid, &o.PlacedBestAsk, &o.PlacedSpread, &o.CreatedAt, &o.UpdatedAt,
			&o.FillPrice, &o.FillSize); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Side = types.Side(side)
		o.TokenSide = types.Outcome(tokenSide)
		o.Status = types.OrderStatus(status)
		out = append(out, &o)
	}
	return out, rows.Err()
}

// MarkFilled transitions an order PENDING -> FILLED, recording the fill
// price/size. Must be called inside the same transaction that inserts the
// owning Trade and updates the Position.
func (r *OrderRepository) MarkFilled(ctx context.Context, tx *sql.Tx, orderID string, fillPrice, fillSize float64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE paper_orders
		SET status = 'FILLED', fill_price = $1, fill_size = $2, updated_at = now()
		WHERE order_id = $3 AND status = 'PENDING'
	`, fillPrice, fillSize, orderID)
	if err != nil {
		return fmt.Errorf("mark order %s filled: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %s was not PENDING", orderID)
	}
	return nil
}

// ExpireOldPendingOrders sweeps any PENDING order older than maxAge into
// EXPIRED, returning the count expired.
func (r *OrderRepository) ExpireOldPendingOrders(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res, err := r.pool.Exec(ctx, `
		UPDATE paper_orders
		SET status = 'EXPIRED', updated_at = now()
		WHERE status = 'PENDING' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire pending orders: %w", err)
	}
	return res.RowsAffected()
}
