package simexec_test

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftline/predictarb/internal/persistence"
	"github.com/riftline/predictarb/internal/simexec"
)

func newTestEngine(t *testing.T) (*simexec.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pool := persistence.NewPool(db, zap.NewNop())
	engine := simexec.New(
		simexec.DefaultConfig(),
		zap.NewNop(),
		pool,
		persistence.NewSnapshotRepository(pool),
		persistence.NewOrderRepository(pool),
		persistence.NewTradeRepository(pool),
		persistence.NewPositionRepository(pool),
	)
	return engine, mock
}

// TestCheckFillsBuyFillsAtCrossedAsk reproduces spec.md §8 scenario S4: a
// pending BUY at 0.28 fills when the latest ask sits at or below 0.28.
func TestCheckFillsBuyFillsAtCrossedAsk(t *testing.T) {
	engine, mock := newTestEngine(t)
	ctx := context.Background()

	now := time.Now()
	orderRows := sqlmock.NewRows([]string{
		"order_id", "market_id", "side", "token_side", "price", "size", "status",
		"placed_best_bid", "placed_best_ask", "placed_spread", "created_at", "updated_at", "fill_price", "fill_size",
	}).AddRow("order-1", "market-1", "BUY", "YES", 0.28, 50.0, "PENDING",
		0.27, 0.29, 0.02, now, now, nil, nil)

	mock.ExpectQuery(`SELECT order_id, market_id, side, token_side, price, size, status`).WillReturnRows(orderRows)

	bookRows := sqlmock.NewRows([]string{
		"id", "market_snapshot_id", "market_id", "token_side", "scan_timestamp",
		"best_bid_price", "best_bid_size", "best_ask_price", "best_ask_size", "spread", "mid",
	}).AddRow(1, 1, "market-1", "YES", now, 0.27, 100.0, 0.28, 100.0, 0.01, 0.275)
	mock.ExpectQuery(`SELECT id, market_snapshot_id, market_id, token_side, scan_timestamp`).WillReturnRows(bookRows)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE paper_orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO paper_trades`).WillReturnResult(sqlmock.NewResult(1, 1))

	posRows := sqlmock.NewRows([]string{
		"market_id", "token_side", "quantity", "average_cost", "cost_basis",
		"current_price", "market_value", "unrealized_pnl", "unrealized_pnl_pct", "updated_at",
	}).AddRow("market-1", "YES", 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, nil, now)
	mock.ExpectQuery(`SELECT market_id, token_side, quantity, average_cost, cost_basis`).WillReturnRows(posRows)
	mock.ExpectExec(`INSERT INTO paper_positions`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectExec(`UPDATE paper_orders`).WillReturnResult(sqlmock.NewResult(0, 0))

	filled, err := engine.CheckFills(ctx, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, filled)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestCheckFillsSellBlockedWithoutPosition reproduces spec.md §8 scenario
// S5: a pending SELL never fills while the held position quantity is below
// the order size, leaving the order PENDING (no synthetic shorts).
func TestCheckFillsSellBlockedWithoutPosition(t *testing.T) {
	engine, mock := newTestEngine(t)
	ctx := context.Background()

	now := time.Now()
	orderRows := sqlmock.NewRows([]string{
		"order_id", "market_id", "side", "token_side", "price", "size", "status",
		"placed_best_bid", "placed_best_ask", "placed_spread", "created_at", "updated_at", "fill_price", "fill_size",
	}).AddRow("order-2", "market-1", "SELL", "YES", 0.30, 50.0, "PENDING",
		0.29, 0.31, 0.02, now, now, nil, nil)
	mock.ExpectQuery(`SELECT order_id, market_id, side, token_side, price, size, status`).WillReturnRows(orderRows)

	bookRows := sqlmock.NewRows([]string{
		"id", "market_snapshot_id", "market_id", "token_side", "scan_timestamp",
		"best_bid_price", "best_bid_size", "best_ask_price", "best_ask_size", "spread", "mid",
	}).AddRow(1, 1, "market-1", "YES", now, 0.31, 100.0, 0.33, 100.0, 0.02, 0.32)
	mock.ExpectQuery(`SELECT id, market_snapshot_id, market_id, token_side, scan_timestamp`).WillReturnRows(bookRows)

	posRows := sqlmock.NewRows([]string{
		"market_id", "token_side", "quantity", "average_cost", "cost_basis",
		"current_price", "market_value", "unrealized_pnl", "unrealized_pnl_pct", "updated_at",
	}).AddRow("market-1", "YES", 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, nil, now)
	mock.ExpectQuery(`SELECT market_id, token_side, quantity, average_cost, cost_basis`).WillReturnRows(posRows)

	mock.ExpectExec(`UPDATE paper_orders`).WillReturnResult(sqlmock.NewResult(0, 0))

	filled, err := engine.CheckFills(ctx, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, filled)
	require.NoError(t, mock.ExpectationsWereMet())
}
