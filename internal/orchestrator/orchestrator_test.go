package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftline/predictarb/internal/persistence"
	"github.com/riftline/predictarb/pkg/config"
	"github.com/riftline/predictarb/pkg/types"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pool := persistence.NewPool(db, zap.NewNop())
	o := &Orchestrator{
		cfg:    &config.Config{InitialCapital: 1000, ArbOrderSize: 50},
		logger: zap.NewNop(),
		pool:   pool,
		repos: Repositories{
			Snapshots:     persistence.NewSnapshotRepository(pool),
			Opportunities: persistence.NewOpportunityRepository(pool),
			Orders:        persistence.NewOrderRepository(pool),
			Positions:     persistence.NewPositionRepository(pool),
			Trades:        persistence.NewTradeRepository(pool),
			PnL:           persistence.NewPnLRepository(pool),
			PaperMarkets:  persistence.NewPaperMarketRepository(pool),
		},
	}
	return o, mock
}

func priceUpdate(marketID string) types.PriceUpdate {
	return types.PriceUpdate{MarketID: marketID, Outcome: types.OutcomeYes, BestBid: 0.4, BestAsk: 0.45, Timestamp: time.Now()}
}

func TestAppendToBufferDropsOldestOnOverflow(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	o.buf = make([]types.PriceUpdate, maxBufferedUpdates)
	for i := range o.buf {
		o.buf[i] = priceUpdate("existing")
	}

	o.appendToBuffer(priceUpdate("newest"))

	assert.Len(t, o.buf, maxBufferedUpdates)
	assert.Equal(t, "newest", o.buf[len(o.buf)-1].MarketID)
}

func TestStatusReturnsLastRefreshedSnapshot(t *testing.T) {
	o, _ := newTestOrchestrator(t)

	assert.Zero(t, o.Status().MarketsTracked)

	o.statusMu.Lock()
	o.status = types.StatusSnapshot{MarketsTracked: 7, TotalEquity: 1234.5}
	o.statusMu.Unlock()

	got := o.Status()
	assert.Equal(t, 7, got.MarketsTracked)
	assert.Equal(t, 1234.5, got.TotalEquity)
}

func TestFlushBufferNoopOnEmptyBuffer(t *testing.T) {
	o, mock := newTestOrchestrator(t)

	err := o.flushBuffer(context.Background())

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlushBufferReprependsOnFailure(t *testing.T) {
	o, mock := newTestOrchestrator(t)
	o.buf = []types.PriceUpdate{priceUpdate("m1")}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO market_snapshots`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := o.flushBuffer(context.Background())

	require.Error(t, err)
	assert.Len(t, o.buf, 1, "failed batch must be re-prepended for the next attempt")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMaintenanceReseedsWhenUnderpopulated(t *testing.T) {
	o, mock := newTestOrchestrator(t)

	mock.ExpectExec(`UPDATE opportunities`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM paper_markets`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`WITH latest AS`).
		WillReturnRows(sqlmock.NewRows([]string{"market_id"}))
	mock.ExpectQuery(`WITH latest AS`).
		WillReturnRows(sqlmock.NewRows([]string{"market_id"}))
	mock.ExpectQuery(`WITH latest AS`).
		WillReturnRows(sqlmock.NewRows([]string{"market_id"}))

	err := o.runMaintenance(context.Background())

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
