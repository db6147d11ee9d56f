package persistence

import (
	"context"
	"fmt"
)

// requiredTables lists every table the engine depends on existing at
// startup. A missing table is a fatal configuration/schema error per
// spec.md §7.
var requiredTables = []string{
	"market_snapshots",
	"orderbook_snapshots",
	"market_metadata",
	"opportunities",
	"paper_markets",
	"paper_orders",
	"paper_trades",
	"paper_positions",
	"paper_pnl_snapshots",
}

// VerifySchema queries information_schema.tables and returns an error
// naming any required table that is missing.
func (p *Pool) VerifySchema(ctx context.Context) error {
	rows, err := p.Query(ctx, `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'`)
	if err != nil {
		return fmt.Errorf("query information_schema.tables: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool, len(requiredTables))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan table name: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate tables: %w", err)
	}

	var missing []string
	for _, want := range requiredTables {
		if !present[want] {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required tables: %v", missing)
	}
	return nil
}
