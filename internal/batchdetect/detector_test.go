package batchdetect_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftline/predictarb/internal/batchdetect"
	"github.com/riftline/predictarb/internal/persistence"
)

func newTestDetector(t *testing.T) (*batchdetect.Detector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pool := persistence.NewPool(db, zap.NewNop())
	return batchdetect.New(batchdetect.DefaultConfig(), zap.NewNop(), pool), mock
}

// TestRunOnceUpsertsAllFiveKindsAndReturnsArbitrageMarkets reproduces a full
// pass: one arbitrage hit plus empty results for the other four kinds, and
// checks the upsert transaction runs against the combined observed set.
func TestRunOnceUpsertsAllFiveKindsAndReturnsArbitrageMarkets(t *testing.T) {
	d, mock := newTestDetector(t)
	ctx := context.Background()

	mock.ExpectQuery(`WITH latest AS`).
		WillReturnRows(sqlmock.NewRows([]string{"market_id", "yes_ask", "no_ask", "least", "volume24h"}).
			AddRow("ARB-1", 0.47, 0.50, 40.0, 12000.0))
	mock.ExpectQuery(`WITH latest AS`).
		WillReturnRows(sqlmock.NewRows([]string{"market_id", "spread_pct"}))
	mock.ExpectQuery(`WITH latest AS`).
		WillReturnRows(sqlmock.NewRows([]string{"market_id", "current_volume", "avg_volume"}))
	mock.ExpectQuery(`WITH latest_book AS`).
		WillReturnRows(sqlmock.NewRows([]string{"market_id", "volume24h", "total_liquidity"}))
	mock.ExpectQuery(`WITH latest_yes AS`).
		WillReturnRows(sqlmock.NewRows([]string{"market_a", "mid_a", "market_b", "mid_b"}))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, market_id, type, detected_at`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "market_id", "type", "detected_at"}))
	mock.ExpectExec(`INSERT INTO opportunities`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	arbitrageMarkets, err := d.RunOnce(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"ARB-1"}, arbitrageMarkets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestRunOnceReturnsErrorOnQueryFailure ensures a failed detector query
// aborts the pass rather than upserting a partial observed set.
func TestRunOnceReturnsErrorOnQueryFailure(t *testing.T) {
	d, mock := newTestDetector(t)
	ctx := context.Background()

	mock.ExpectQuery(`WITH latest AS`).WillReturnError(assert.AnError)

	_, err := d.RunOnce(ctx)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
