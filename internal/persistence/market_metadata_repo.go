package persistence

import (
	"context"
	"fmt"
)

// MarketMetadataRepository tracks each market's category for cross-market
// mispricing comparison, populated by internal/discovery as it learns about
// markets from the REST catalog.
type MarketMetadataRepository struct {
	pool *Pool
}

// NewMarketMetadataRepository constructs a MarketMetadataRepository over pool.
func NewMarketMetadataRepository(pool *Pool) *MarketMetadataRepository {
	return &MarketMetadataRepository{pool: pool}
}

// UpsertCategory records marketID's category, overwriting any prior value.
func (r *MarketMetadataRepository) UpsertCategory(ctx context.Context, marketID, category string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO market_metadata (market_id, category)
		VALUES ($1, $2)
		ON CONFLICT (market_id) DO UPDATE SET category = EXCLUDED.category
	`, marketID, category)
	if err != nil {
		return fmt.Errorf("upsert market metadata %s: %w", marketID, err)
	}
	return nil
}
