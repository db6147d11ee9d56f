package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestArbitrageCandidatesComputesProfitAndLiquidity(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewBatchDetectRepository(pool)

	mock.ExpectQuery(`WITH latest AS`).
		WillReturnRows(sqlmock.NewRows([]string{"market_id", "yes_ask", "no_ask", "least", "volume24h"}).
			AddRow("M1", 0.47, 0.50, 40.0, 12000.0))

	out, err := repo.ArbitrageCandidates(context.Background(), 5*time.Minute, 0.995)
	assert.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "M1", out[0].MarketID)
	assert.InDelta(t, 0.97, out[0].YesNoSum, 1e-9)
	assert.InDelta(t, 0.03, out[0].SpreadPercent, 1e-9)
	assert.InDelta(t, 40.0, out[0].AvailableLiquidity, 1e-9)
	assert.InDelta(t, 1.2, out[0].TheoreticalProfitUSD, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMispricingCandidatesEmitsBothSidesOfPair(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewBatchDetectRepository(pool)

	mock.ExpectQuery(`WITH latest_yes AS`).
		WillReturnRows(sqlmock.NewRows([]string{"market_a", "mid_a", "market_b", "mid_b"}).
			AddRow("M1", 0.30, "M2", 0.45))

	out, err := repo.MispricingCandidates(context.Background(), 5*time.Minute, 0.2, 0.8, 0.1)
	assert.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, "M1", out[0].MarketID)
	assert.Equal(t, "M2", out[1].MarketID)
	assert.InDelta(t, 0.15, out[0].SpreadPercent, 1e-9)
	assert.InDelta(t, 0.15, out[1].SpreadPercent, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThinBookCandidatesFiltersOnVolumeAndLiquidity(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewBatchDetectRepository(pool)

	mock.ExpectQuery(`WITH latest_book AS`).
		WillReturnRows(sqlmock.NewRows([]string{"market_id", "volume24h", "total_liquidity"}).
			AddRow("M3", 15000.0, 120.0))

	out, err := repo.ThinBookCandidates(context.Background(), 5*time.Minute, 10000, 500)
	assert.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "M3", out[0].MarketID)
	assert.InDelta(t, 15000.0, out[0].MarketVolume, 1e-9)
	assert.InDelta(t, 120.0, out[0].AvailableLiquidity, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}
