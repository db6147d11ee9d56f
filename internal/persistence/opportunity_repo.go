package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riftline/predictarb/pkg/types"
)

// ObservedOpportunity is one row the batch detector produced in a single
// pass, keyed by (MarketID, Type).
type ObservedOpportunity struct {
	Type                 types.OpportunityType
	MarketID             string
	YesNoSum             float64
	SpreadPercent        float64
	AvailableLiquidity   float64
	MarketVolume         float64
	TheoreticalProfitUSD float64
}

// OpportunityRepository is the single canonical repository exposing the
// full five-detector surface (arbitrage, wide spread, volume spike, thin
// book, mispricing) — see DESIGN.md open-question #3.
type OpportunityRepository struct {
	pool *Pool
}

// NewOpportunityRepository constructs an OpportunityRepository over pool.
func NewOpportunityRepository(pool *Pool) *OpportunityRepository {
	return &OpportunityRepository{pool: pool}
}

// UpsertOpportunities computes the set of currently-active (marketId, type)
// keys, diffs against observed: inserts new rows, leaves re-observed rows
// untouched, and flips any active row NOT in observed to inactive with
// expiredAt/durationSeconds filled. Runs inside one transaction so readers
// never see a partial diff.
func (r *OpportunityRepository) UpsertOpportunities(ctx context.Context, observed []ObservedOpportunity, scanTimestamp time.Time) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		observedKeys := make(map[string]bool, len(observed))
		for _, o := range observed {
			observedKeys[key(o.MarketID, o.Type)] = true
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT id, market_id, type, detected_at
			FROM opportunities
			WHERE still_active = true
		`)
		if err != nil {
			return fmt.Errorf("query active opportunities: %w", err)
		}
		type active struct {
			id         int64
			marketID   string
			typ        types.OpportunityType
			detectedAt time.Time
		}
		var actives []active
		for rows.Next() {
			var a active
			var typ string
			if err := rows.Scan(&a.id, &a.marketID, &typ, &a.detectedAt); err != nil {
				rows.Close()
				return fmt.Errorf("scan active opportunity: %w", err)
			}
			a.typ = types.OpportunityType(typ)
			actives = append(actives, a)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, a := range actives {
			if observedKeys[key(a.marketID, a.typ)] {
				continue
			}
			duration := int64(scanTimestamp.Sub(a.detectedAt).Seconds())
			if duration < 0 {
				duration = 0
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE opportunities
				SET still_active = false, expired_at = $1, duration_seconds = $2
				WHERE id = $3
			`, scanTimestamp, duration, a.id); err != nil {
				return fmt.Errorf("expire opportunity %d: %w", a.id, err)
			}
		}

		activeKeys := make(map[string]bool, len(actives))
		for _, a := range actives {
			activeKeys[key(a.marketID, a.typ)] = true
		}

		for _, o := range observed {
			if activeKeys[key(o.MarketID, o.Type)] {
				continue // already active and re-observed: no-op
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO opportunities
					(type, market_id, detected_at, yes_no_sum, spread_percent,
					 available_liquidity, market_volume, theoretical_profit_usd, still_active)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
			`, string(o.Type), o.MarketID, scanTimestamp, o.YesNoSum, o.SpreadPercent,
				o.AvailableLiquidity, o.MarketVolume, o.TheoreticalProfitUSD); err != nil {
				return fmt.Errorf("insert opportunity %s/%s: %w", o.MarketID, o.Type, err)
			}
		}
		return nil
	})
}

// ExpireStale force-expires any still-active opportunity whose detectedAt
// is older than maxAge, regardless of whether it was re-observed. Used by
// the orchestrator's hourly maintenance task.
func (r *OpportunityRepository) ExpireStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res, err := r.pool.Exec(ctx, `
		UPDATE opportunities
		SET still_active = false, expired_at = now(),
		    duration_seconds = EXTRACT(EPOCH FROM (now() - detected_at))::bigint
		WHERE still_active = true AND detected_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire stale opportunities: %w", err)
	}
	return res.RowsAffected()
}

func key(marketID string, typ types.OpportunityType) string {
	return marketID + "|" + string(typ)
}
