package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/riftline/predictarb/pkg/types"
)

// BatchDetectRepository runs the five periodic SQL-aggregation queries
// spec.md §4.F names, each scanning the last `window` of persisted
// snapshots.
type BatchDetectRepository struct {
	pool *Pool
}

// NewBatchDetectRepository constructs a BatchDetectRepository over pool.
func NewBatchDetectRepository(pool *Pool) *BatchDetectRepository {
	return &BatchDetectRepository{pool: pool}
}

// ArbitrageCandidates returns markets whose latest YES/NO asks (within
// window) sum below threshold, ranked by implied profit (1 - sum).
func (r *BatchDetectRepository) ArbitrageCandidates(ctx context.Context, window time.Duration, threshold float64) ([]ObservedOpportunity, error) {
	rows, err := r.pool.Query(ctx, `
		WITH latest AS (
			SELECT DISTINCT ON (market_id, token_side) market_id, token_side, best_ask_price, best_ask_size
			FROM orderbook_snapshots
			WHERE scan_timestamp >= $1
			ORDER BY market_id, token_side, scan_timestamp DESC
		),
		paired AS (
			SELECT y.market_id, y.best_ask_price AS yes_ask, y.best_ask_size AS yes_size,
			       n.best_ask_price AS no_ask, n.best_ask_size AS no_size
			FROM latest y
			JOIN latest n ON y.market_id = n.market_id
			WHERE y.token_side = 'YES' AND n.token_side = 'NO'
		),
		latest_volume AS (
			SELECT DISTINCT ON (market_id) market_id, volume24h
			FROM market_snapshots
			ORDER BY market_id, scan_timestamp DESC
		)
		SELECT p.market_id, p.yes_ask, p.no_ask, LEAST(p.yes_size, p.no_size), COALESCE(v.volume24h, 0)
		FROM paired p
		LEFT JOIN latest_volume v ON v.market_id = p.market_id
		WHERE p.yes_ask + p.no_ask < $2
		ORDER BY (p.yes_ask + p.no_ask) ASC
	`, time.Now().Add(-window), threshold)
	if err != nil {
		return nil, fmt.Errorf("query arbitrage candidates: %w", err)
	}
	defer rows.Close()

	var out []ObservedOpportunity
	for rows.Next() {
		var o ObservedOpportunity
		var yesAsk, noAsk float64
		if err := rows.Scan(&o.MarketID, &yesAsk, &noAsk, &o.AvailableLiquidity, &o.MarketVolume); err != nil {
			return nil, fmt.Errorf("scan arbitrage candidate: %w", err)
		}
		o.Type = types.OpportunityArbitrage
		o.YesNoSum = yesAsk + noAsk
		o.SpreadPercent = 1 - o.YesNoSum
		o.TheoreticalProfitUSD = (1 - o.YesNoSum) * o.AvailableLiquidity
		out = append(out, o)
	}
	return out, rows.Err()
}

// WideSpreadCandidates returns markets whose widest leg spreadPct (within
// window) exceeds threshold, capped at 50.
func (r *BatchDetectRepository) WideSpreadCandidates(ctx context.Context, window time.Duration, threshold float64) ([]ObservedOpportunity, error) {
	rows, err := r.pool.Query(ctx, `
		WITH latest AS (
			SELECT DISTINCT ON (market_id, token_side) market_id, spread, mid
			FROM orderbook_snapshots
			WHERE scan_timestamp >= $1
			ORDER BY market_id, token_side, scan_timestamp DESC
		)
		SELECT market_id, MAX(spread / NULLIF(mid, 0)) AS spread_pct
		FROM latest
		WHERE mid > 0
		GROUP BY market_id
		HAVING MAX(spread / NULLIF(mid, 0)) > $2
		ORDER BY spread_pct DESC
		LIMIT 50
	`, time.Now().Add(-window), threshold)
	if err != nil {
		return nil, fmt.Errorf("query wide spread candidates: %w", err)
	}
	defer rows.Close()

	var out []ObservedOpportunity
	for rows.Next() {
		var o ObservedOpportunity
		if err := rows.Scan(&o.MarketID, &o.SpreadPercent); err != nil {
			return nil, fmt.Errorf("scan wide spread candidate: %w", err)
		}
		o.Type = types.OpportunityWideSpread
		out = append(out, o)
	}
	return out, rows.Err()
}

// VolumeSpikeCandidates returns markets whose latest volume24h divided by
// its 24h average meets or exceeds multiplier, capped at 20.
func (r *BatchDetectRepository) VolumeSpikeCandidates(ctx context.Context, multiplier float64) ([]ObservedOpportunity, error) {
	rows, err := r.pool.Query(ctx, `
		WITH latest AS (
			SELECT DISTINCT ON (market_id) market_id, volume24h AS current_volume
			FROM market_snapshots
			ORDER BY market_id, scan_timestamp DESC
		),
		avg24h AS (
			SELECT market_id, AVG(volume24h) AS avg_volume
			FROM market_snapshots
			WHERE scan_timestamp >= now() - interval '24 hours'
			GROUP BY market_id
		)
		SELECT l.market_id, l.current_volume, a.avg_volume
		FROM latest l
		JOIN avg24h a ON a.market_id = l.market_id
		WHERE a.avg_volume > 0 AND l.current_volume / a.avg_volume >= $1
		ORDER BY (l.current_volume / a.avg_volume) DESC
		LIMIT 20
	`, multiplier)
	if err != nil {
		return nil, fmt.Errorf("query volume spike candidates: %w", err)
	}
	defer rows.Close()

	var out []ObservedOpportunity
	for rows.Next() {
		var o ObservedOpportunity
		var avgVolume float64
		if err := rows.Scan(&o.MarketID, &o.MarketVolume, &avgVolume); err != nil {
			return nil, fmt.Errorf("scan volume spike candidate: %w", err)
		}
		o.Type = types.OpportunityVolumeSpike
		if avgVolume > 0 {
			o.SpreadPercent = o.MarketVolume / avgVolume
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ThinBookCandidates returns markets with volume24h >= minVolume and
// combined best-level liquidity (both legs) below maxLiquidity, capped at
// 20.
func (r *BatchDetectRepository) ThinBookCandidates(ctx context.Context, window time.Duration, minVolume, maxLiquidity float64) ([]ObservedOpportunity, error) {
	rows, err := r.pool.Query(ctx, `
		WITH latest_book AS (
			SELECT DISTINCT ON (market_id, token_side) market_id, best_bid_size, best_ask_size
			FROM orderbook_snapshots
			WHERE scan_timestamp >= $1
			ORDER BY market_id, token_side, scan_timestamp DESC
		),
		liquidity AS (
			SELECT market_id, SUM(best_bid_size + best_ask_size) AS total_liquidity
			FROM latest_book
			GROUP BY market_id
		),
		latest_volume AS (
			SELECT DISTINCT ON (market_id) market_id, volume24h
			FROM market_snapshots
			ORDER BY market_id, scan_timestamp DESC
		)
		SELECT liq.market_id, v.volume24h, liq.total_liquidity
		FROM liquidity liq
		JOIN latest_volume v ON v.market_id = liq.market_id
		WHERE v.volume24h >= $2 AND liq.total_liquidity < $3
		ORDER BY liq.total_liquidity ASC
		LIMIT 20
	`, time.Now().Add(-window), minVolume, maxLiquidity)
	if err != nil {
		return nil, fmt.Errorf("query thin book candidates: %w", err)
	}
	defer rows.Close()

	var out []ObservedOpportunity
	for rows.Next() {
		var o ObservedOpportunity
		if err := rows.Scan(&o.MarketID, &o.MarketVolume, &o.AvailableLiquidity); err != nil {
			return nil, fmt.Errorf("scan thin book candidate: %w", err)
		}
		o.Type = types.OpportunityThinBook
		out = append(out, o)
	}
	return out, rows.Err()
}

// MispricingCandidates returns one ObservedOpportunity per market in every
// same-category pair whose YES mids both lie in [midLow, midHigh] and
// differ by more than minDiff, capped at 10 pairs (20 rows).
func (r *BatchDetectRepository) MispricingCandidates(ctx context.Context, window time.Duration, midLow, midHigh, minDiff float64) ([]ObservedOpportunity, error) {
	rows, err := r.pool.Query(ctx, `
		WITH latest_yes AS (
			SELECT DISTINCT ON (ob.market_id) ob.market_id, ob.mid, mm.category
			FROM orderbook_snapshots ob
			JOIN market_metadata mm ON mm.market_id = ob.market_id
			WHERE ob.token_side = 'YES' AND ob.scan_timestamp >= $1
			ORDER BY ob.market_id, ob.scan_timestamp DESC
		)
		SELECT a.market_id, a.mid, b.market_id, b.mid
		FROM latest_yes a
		JOIN latest_yes b ON a.category = b.category AND a.market_id < b.market_id
		WHERE a.mid BETWEEN $2 AND $3 AND b.mid BETWEEN $2 AND $3
		  AND ABS(a.mid - b.mid) > $4
		ORDER BY ABS(a.mid - b.mid) DESC
		LIMIT 10
	`, time.Now().Add(-window), midLow, midHigh, minDiff)
	if err != nil {
		return nil, fmt.Errorf("query mispricing candidates: %w", err)
	}
	defer rows.Close()

	var out []ObservedOpportunity
	for rows.Next() {
		var marketA, marketB string
		var midA, midB float64
		if err := rows.Scan(&marketA, &midA, &marketB, &midB); err != nil {
			return nil, fmt.Errorf("scan mispricing candidate: %w", err)
		}
		diff := midA - midB
		if diff < 0 {
			diff = -diff
		}
		out = append(out,
			ObservedOpportunity{Type: types.OpportunityMispricing, MarketID: marketA, YesNoSum: midA, SpreadPercent: diff},
			ObservedOpportunity{Type: types.OpportunityMispricing, MarketID: marketB, YesNoSum: midB, SpreadPercent: diff},
		)
	}
	return out, rows.Err()
}
