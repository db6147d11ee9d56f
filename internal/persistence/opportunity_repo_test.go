package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/riftline/predictarb/pkg/types"
)

func newMockPool(t *testing.T) (*Pool, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Pool{db: db, logger: zap.NewNop()}, mock
}

func TestUpsertOpportunitiesInsertsNewAndExpiresStale(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewOpportunityRepository(pool)

	scanTime := time.Now()
	staleDetected := scanTime.Add(-20 * time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, market_id, type, detected_at`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "market_id", "type", "detected_at"}).
			AddRow(int64(1), "M2", "ARBITRAGE", staleDetected))
	mock.ExpectExec(`UPDATE opportunities`).
		WithArgs(scanTime, sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO opportunities`).
		WithArgs("ARBITRAGE", "M1", scanTime, 0.98, 0.0, 50.0, 10000.0, 1.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.UpsertOpportunities(context.Background(), []ObservedOpportunity{
		{Type: types.OpportunityArbitrage, MarketID: "M1", YesNoSum: 0.98, AvailableLiquidity: 50.0, MarketVolume: 10000.0, TheoreticalProfitUSD: 1.0},
	}, scanTime)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireStale(t *testing.T) {
	pool, mock := newMockPool(t)
	repo := NewOpportunityRepository(pool)

	mock.ExpectExec(`UPDATE opportunities`).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpireStale(context.Background(), 60*time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
