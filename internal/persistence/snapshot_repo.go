package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riftline/predictarb/pkg/types"
)

// SnapshotRepository persists streamed price updates as market/orderbook
// snapshot rows.
type SnapshotRepository struct {
	pool *Pool
}

// NewSnapshotRepository constructs a SnapshotRepository over pool.
func NewSnapshotRepository(pool *Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// BatchInsertWSUpdates upserts a market_snapshots row per distinct marketId
// at scanTimestamp, then batch-upserts orderbook_snapshots rows with
// ON CONFLICT (market_id, token_side, scan_timestamp) DO UPDATE, making the
// whole write idempotent within a scan window. Runs inside one transaction.
func (r *SnapshotRepository) BatchInsertWSUpdates(ctx context.Context, updates []types.PriceUpdate, scanTimestamp time.Time) error {
	if len(updates) == 0 {
		return nil
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		marketSnapshotIDs := make(map[string]int64, len(updates))

		for _, u := range updates {
			if _, ok := marketSnapshotIDs[u.MarketID]; ok {
				continue
			}
			var id int64
			err := tx.QueryRowContext(ctx, `
				INSERT INTO market_snapshots (market_id, scan_timestamp, volume24h, active)
				VALUES ($1, $2, 0, true)
				ON CONFLICT (market_id, scan_timestamp) DO UPDATE SET active = true
				RETURNING id
			`, u.MarketID, scanTimestamp).Scan(&id)
			if err != nil {
				return fmt.Errorf("upsert market snapshot for %s: %w", u.MarketID, err)
			}
			marketSnapshotIDs[u.MarketID] = id
		}

		for _, u := range updates {
			snapshotID := marketSnapshotIDs[u.MarketID]
			_, err := tx.ExecContext(ctx, `
				INSERT INTO orderbook_snapshots
					(market_snapshot_id, market_id, token_side, scan_timestamp,
					 best_bid_price, best_bid_size, best_ask_price, best_ask_size, spread, mid)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (market_id, token_side, scan_timestamp) DO UPDATE SET
					best_bid_price = EXCLUDED.best_bid_price,
					best_bid_size  = EXCLUDED.best_bid_size,
					best_ask_price = EXCLUDED.best_ask_price,
					best_ask_size  = EXCLUDED.best_ask_size,
					spread         = EXCLUDED.spread,
					mid            = EXCLUDED.mid
			`, snapshotID, u.MarketID, string(u.Outcome), scanTimestamp,
				u.BestBid, 0.0, u.BestAsk, u.AskSize, u.Spread, (u.BestBid+u.BestAsk)/2)
			if err != nil {
				return fmt.Errorf("upsert orderbook snapshot for %s/%s: %w", u.MarketID, u.Outcome, err)
			}
		}
		return nil
	})
}

// LatestOrderBook returns the most recent OrderBookSnapshot for
// (marketID, tokenSide), or sql.ErrNoRows if none exists.
func (r *SnapshotRepository) LatestOrderBook(ctx context.Context, marketID string, tokenSide types.Outcome) (*types.OrderBookSnapshot, error) {
	row := r.pool.QueryOne(ctx, `
		SELECT id, market_snapshot_id, market_id, token_side, scan_timestamp,
		       best_bid_price, best_bid_size, best_ask_price, best_ask_size, spread, mid
		FROM orderbook_snapshots
		WHERE market_id = $1 AND token_side = $2
		ORDER BY scan_timestamp DESC
		LIMIT 1
	`, marketID, string(tokenSide))

	var s types.OrderBookSnapshot
	var side string
	if err := row.Scan(&s.ID, &s.MarketSnapshotID, &s.MarketID, &side, &s.ScanTimestamp,
		&s.BestBidPrice, &s.BestBidSize, &s.BestAskPrice, &s.BestAskSize, &s.Spread, &s.Mid); err != nil {
		return nil, err
	}
	s.TokenSide = types.Outcome(side)
	return &s, nil
}

// MidPriceNMinutesAgo returns the mid price for (marketID, tokenSide) from
// the orderbook snapshot closest to (now - window), for trend-filter risk
// gate evaluation. Returns sql.ErrNoRows if no such snapshot exists.
func (r *SnapshotRepository) MidPriceNMinutesAgo(ctx context.Context, marketID string, tokenSide types.Outcome, window time.Duration) (float64, error) {
	row := r.pool.QueryOne(ctx, `
		SELECT mid FROM orderbook_snapshots
		WHERE market_id = $1 AND token_side = $2 AND scan_timestamp <= $3
		ORDER BY scan_timestamp DESC
		LIMIT 1
	`, marketID, string(tokenSide), time.Now().Add(-window))

	var mid float64
	if err := row.Scan(&mid); err != nil {
		return 0, err
	}
	return mid, nil
}

// SelectLiquidMarket, SelectMediumVolumeMarket, and SelectNewMarket rank
// candidate markets whose latest bids on both legs sit in [0.20, 0.80],
// excluding markets already active in the paper book.
func (r *SnapshotRepository) SelectLiquidMarket(ctx context.Context) (string, error) {
	return r.selectByVolumeRank(ctx, "DESC", 0)
}

func (r *SnapshotRepository) SelectMediumVolumeMarket(ctx context.Context) (string, error) {
	return r.selectByVolumeRank(ctx, "DESC", offsetMediumVolume)
}

func (r *SnapshotRepository) SelectNewMarket(ctx context.Context) (string, error) {
	return r.selectByVolumeRank(ctx, "ASC", 0)
}

const offsetMediumVolume = 10

func (r *SnapshotRepository) selectByVolumeRank(ctx context.Context, direction string, offset int) (string, error) {
	query := fmt.Sprintf(`
		WITH latest AS (
			SELECT DISTINCT ON (ob.market_id, ob.token_side)
			       ob.market_id, ob.token_side, ob.best_bid_price
			FROM orderbook_snapshots ob
			ORDER BY ob.market_id, ob.token_side, ob.scan_timestamp DESC
		),
		eligible AS (
			SELECT market_id
			FROM latest
			GROUP BY market_id
			HAVING COUNT(*) FILTER (WHERE best_bid_price BETWEEN 0.20 AND 0.80) = 2
		)
		SELECT ms.market_id
		FROM market_snapshots ms
		JOIN eligible e ON e.market_id = ms.market_id
		WHERE ms.market_id NOT IN (SELECT market_id FROM paper_markets)
		ORDER BY ms.volume24h %s
		OFFSET $1
		LIMIT 1
	`, direction)

	var marketID string
	if err := r.pool.QueryOne(ctx, query, offset).Scan(&marketID); err != nil {
		return "", err
	}
	return marketID, nil
}
