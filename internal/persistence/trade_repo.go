package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riftline/predictarb/pkg/types"
)

// TradeRepository is the typed repository over simulated trades.
type TradeRepository struct {
	pool *Pool
}

// NewTradeRepository constructs a TradeRepository over pool.
func NewTradeRepository(pool *Pool) *TradeRepository {
	return &TradeRepository{pool: pool}
}

// Insert inserts t. Must be called inside the same transaction that marks
// its owning Order FILLED and updates the Position.
func (r *TradeRepository) Insert(ctx context.Context, tx *sql.Tx, t *types.Trade) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO paper_trades
			(trade_id, order_id, market_id, side, token_side, price, size, value,
			 platform_fee, gas_cost, slippage_cost, total_cost, net_value, filled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, t.TradeID, t.OrderID, t.MarketID, string(t.Side), string(t.TokenSide), t.Price, t.Size, t.Value,
		t.Costs.PlatformFee, t.Costs.GasCost, t.Costs.SlippageCost, t.Costs.TotalCost, t.NetValue, t.FilledAt)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.TradeID, err)
	}
	return nil
}

// SumNetValue returns the cash-flow sum of all trades' NetValue, used to
// derive cash balance (see DESIGN.md open question #1).
func (r *TradeRepository) SumNetValue(ctx context.Context) (float64, error) {
	var sum sql.NullFloat64
	if err := r.pool.QueryOne(ctx, `SELECT SUM(net_value) FROM paper_trades`).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum net value: %w", err)
	}
	return sum.Float64, nil
}

// CountToday returns the number of trades filled since the start of the
// current UTC day, for the PnL snapshot's tradesToday field.
func (r *TradeRepository) CountToday(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryOne(ctx, `
		SELECT COUNT(*) FROM paper_trades WHERE filled_at >= date_trunc('day', now())
	`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count trades today: %w", err)
	}
	return count, nil
}

// WinRateToday returns the fraction of today's closing SELL trades with a
// positive net value.
func (r *TradeRepository) WinRateToday(ctx context.Context) (float64, error) {
	var total, wins int
	row := r.pool.QueryOne(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE net_value > 0)
		FROM paper_trades
		WHERE filled_at >= date_trunc('day', now()) AND side = 'SELL'
	`)
	if err := row.Scan(&total, &wins); err != nil {
		return 0, fmt.Errorf("win rate today: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(wins) / float64(total), nil
}
