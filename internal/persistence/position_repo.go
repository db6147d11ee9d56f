package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riftline/predictarb/pkg/types"
)

// PositionRepository is the single typed repository over positions (see
// DESIGN.md open question #1 — there is no second divergent copy).
type PositionRepository struct {
	pool *Pool
}

// NewPositionRepository constructs a PositionRepository over pool.
func NewPositionRepository(pool *Pool) *PositionRepository {
	return &PositionRepository{pool: pool}
}

// pnlPctClampLo/Hi bound the stored unrealizedPnlPct column so a near-zero
// costBasis can never produce an overflowing percentage.
const (
	pnlPctClampLo = -10.0
	pnlPctClampHi = 10.0
)

// Get returns the position for (marketID, tokenSide), or a dormant zero
// position if none exists yet.
func (r *PositionRepository) Get(ctx context.Context, marketID string, tokenSide types.Outcome) (*types.Position, error) {
	row := r.pool.QueryOne(ctx, `
		SELECT market_id, token_side, quantity, average_cost, cost_basis,
		       current_price, market_value, unrealized_pnl, unrealized_pnl_pct, updated_at
		FROM paper_positions
		WHERE market_id = $1 AND token_side = $2
	`, marketID, string(tokenSide))

	var p types.Position
	var side string
	var pct sql.NullFloat64
	err := row.Scan(&p.MarketID, &side, &p.Quantity, &p.AverageCost, &p.CostBasis,
		&p.CurrentPrice, &p.MarketValue, &p.UnrealizedPnl, &pct, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return &types.Position{MarketID: marketID, TokenSide: tokenSide}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s/%s: %w", marketID, tokenSide, err)
	}
	p.TokenSide = types.Outcome(side)
	if pct.Valid {
		v := pct.Float64
		p.UnrealizedPnlPct = &v
	}
	return &p, nil
}

// Upsert derives marketValue/unrealizedPnl/unrealizedPnlPct per §4.C and
// writes the row inside tx. Must be called in the same transaction as the
// Order fill and Trade insert that produced this position change.
func (r *PositionRepository) Upsert(ctx context.Context, tx *sql.Tx, marketID string, tokenSide types.Outcome, qty, avgCost, costBasis, currentPrice float64) error {
	marketValue := qty * currentPrice

	var unrealizedPnl float64
	if qty >= 0 {
		unrealizedPnl = marketValue - costBasis
	} else {
		unrealizedPnl = costBasis + marketValue
	}

	var pctPtr *float64
	if costBasis > 0.01 {
		pct := unrealizedPnl / costBasis
		if pct < pnlPctClampLo {
			pct = pnlPctClampLo
		}
		if pct > pnlPctClampHi {
			pct = pnlPctClampHi
		}
		pctPtr = &pct
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO paper_positions
			(market_id, token_side, quantity, average_cost, cost_basis,
			 current_price, market_value, unrealized_pnl, unrealized_pnl_pct, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (market_id, token_side) DO UPDATE SET
			quantity           = EXCLUDED.quantity,
			average_cost       = EXCLUDED.average_cost,
			cost_basis         = EXCLUDED.cost_basis,
			current_price      = EXCLUDED.current_price,
			market_value       = EXCLUDED.market_value,
			unrealized_pnl     = EXCLUDED.unrealized_pnl,
			unrealized_pnl_pct = EXCLUDED.unrealized_pnl_pct,
			updated_at         = now()
	`, marketID, string(tokenSide), qty, avgCost, costBasis, currentPrice, marketValue, unrealizedPnl, pctPtr)
	if err != nil {
		return fmt.Errorf("upsert position %s/%s: %w", marketID, tokenSide, err)
	}
	return nil
}

// TotalMarketValue sums marketValue across every position, for PnL
// snapshots.
func (r *PositionRepository) TotalMarketValue(ctx context.Context) (float64, error) {
	var sum sql.NullFloat64
	if err := r.pool.QueryOne(ctx, `SELECT SUM(market_value) FROM paper_positions`).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum market value: %w", err)
	}
	return sum.Float64, nil
}

// TotalUnrealizedPnl sums unrealizedPnl across every position.
func (r *PositionRepository) TotalUnrealizedPnl(ctx context.Context) (float64, error) {
	var sum sql.NullFloat64
	if err := r.pool.QueryOne(ctx, `SELECT SUM(unrealized_pnl) FROM paper_positions`).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum unrealized pnl: %w", err)
	}
	return sum.Float64, nil
}

// LastSellAt returns the most recent SELL trade time for (marketID,
// tokenSide), or zero time if none, for the balanced-trading risk gate.
func (r *PositionRepository) LastSellAt(ctx context.Context, marketID string, tokenSide types.Outcome) (sql.NullTime, error) {
	var t sql.NullTime
	err := r.pool.QueryOne(ctx, `
		SELECT MAX(filled_at) FROM paper_trades
		WHERE market_id = $1 AND token_side = $2 AND side = 'SELL'
	`, marketID, string(tokenSide)).Scan(&t)
	return t, err
}
