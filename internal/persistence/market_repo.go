package persistence

import (
	"context"
	"fmt"
	"time"
)

// PaperMarketRepository tracks which markets are active in the simulated
// paper-trading book, and why they were added.
type PaperMarketRepository struct {
	pool *Pool
}

// NewPaperMarketRepository constructs a PaperMarketRepository over pool.
func NewPaperMarketRepository(pool *Pool) *PaperMarketRepository {
	return &PaperMarketRepository{pool: pool}
}

// PaperMarket is one active row of the simulated market book.
type PaperMarket struct {
	MarketID string
	Reason   string // "SEED", "ARBITRAGE", ...
	AddedAt  time.Time
	Active   bool
}

// Add inserts marketID into the paper book with the given reason if it is
// not already present; a no-op otherwise.
func (r *PaperMarketRepository) Add(ctx context.Context, marketID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO paper_markets (market_id, reason, added_at, active)
		VALUES ($1, $2, now(), true)
		ON CONFLICT (market_id) DO NOTHING
	`, marketID, reason)
	if err != nil {
		return fmt.Errorf("add paper market %s: %w", marketID, err)
	}
	return nil
}

// Active returns every market currently active in the paper book.
func (r *PaperMarketRepository) Active(ctx context.Context) ([]PaperMarket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT market_id, reason, added_at, active FROM paper_markets WHERE active = true
	`)
	if err != nil {
		return nil, fmt.Errorf("query active paper markets: %w", err)
	}
	defer rows.Close()

	var out []PaperMarket
	for rows.Next() {
		var m PaperMarket
		if err := rows.Scan(&m.MarketID, &m.Reason, &m.AddedAt, &m.Active); err != nil {
			return nil, fmt.Errorf("scan paper market: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ArbitrageMarkets returns the subset of active paper markets added because
// of an ARBITRAGE opportunity — these are processed before standard
// market-making markets in the orchestrator's cycle.
func (r *PaperMarketRepository) ArbitrageMarkets(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT market_id FROM paper_markets WHERE active = true AND reason = 'ARBITRAGE'
	`)
	if err != nil {
		return nil, fmt.Errorf("query arbitrage paper markets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan arbitrage market: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Count returns how many markets are active in the paper book, for the
// hourly re-seed decision.
func (r *PaperMarketRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryOne(ctx, `SELECT COUNT(*) FROM paper_markets WHERE active = true`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count paper markets: %w", err)
	}
	return n, nil
}
