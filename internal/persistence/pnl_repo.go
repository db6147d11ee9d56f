package persistence

import (
	"context"
	"fmt"

	"github.com/riftline/predictarb/pkg/types"
)

// PnLRepository persists append-only portfolio P&L snapshots. Realized P&L
// is zero while positions remain open; cashBalance is computed by the
// caller as initialCapital + Σtrades.netValue (DESIGN.md open question #1).
type PnLRepository struct {
	pool *Pool
}

// NewPnLRepository constructs a PnLRepository over pool.
func NewPnLRepository(pool *Pool) *PnLRepository {
	return &PnLRepository{pool: pool}
}

// Insert appends a new PnLSnapshot row.
func (r *PnLRepository) Insert(ctx context.Context, s *types.PnLSnapshot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO paper_pnl_snapshots
			(taken_at, cash_balance, position_value, total_equity, realized_pnl,
			 unrealized_pnl, total_pnl, trades_today, fill_rate_today, win_rate_today)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, s.TakenAt, s.CashBalance, s.PositionValue, s.TotalEquity, s.RealizedPnl,
		s.UnrealizedPnl, s.TotalPnl, s.TradesToday, s.FillRateToday, s.WinRateToday)
	if err != nil {
		return fmt.Errorf("insert pnl snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recently recorded snapshot, or nil if none exist.
func (r *PnLRepository) Latest(ctx context.Context) (*types.PnLSnapshot, error) {
	row := r.pool.QueryOne(ctx, `
		SELECT id, taken_at, cash_balance, position_value, total_equity, realized_pnl,
		       unrealized_pnl, total_pnl, trades_today, fill_rate_today, win_rate_today
		FROM paper_pnl_snapshots
		ORDER BY taken_at DESC
		LIMIT 1
	`)
	var s types.PnLSnapshot
	if err := row.Scan(&s.ID, &s.TakenAt, &s.CashBalance, &s.PositionValue, &s.TotalEquity,
		&s.RealizedPnl, &s.UnrealizedPnl, &s.TotalPnl, &s.TradesToday, &s.FillRateToday, &s.WinRateToday); err != nil {
		return nil, fmt.Errorf("latest pnl snapshot: %w", err)
	}
	return &s, nil
}
