// Package persistence is the pooled connection layer over the relational
// store: a transactional batch helper and typed repositories for
// snapshots, orderbooks, opportunities, orders, trades, positions, and P&L.
package persistence

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Pool wraps a pooled *sql.DB. It is explicitly constructed and its
// lifecycle is tied to the orchestrator's start/stop — there is no
// package-level singleton (per spec.md §9's redesign flag).
type Pool struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to databaseURL (a standard postgres:// DSN) and verifies
// connectivity with a Ping.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*Pool, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("persistence-pool-connected")
	return &Pool{db: db, logger: logger}, nil
}

// NewPool wraps an already-open *sql.DB, bypassing the connectivity check in
// Open. Used to inject a test double (e.g. sqlmock) in place of a real
// database.
func NewPool(db *sql.DB, logger *zap.Logger) *Pool {
	return &Pool{db: db, logger: logger}
}

// Close releases the underlying connection pool.
func (p *Pool) Close() error {
	return p.db.Close()
}

// Query runs a query expected to return multiple rows.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return p.db.QueryContext(ctx, query, args...)
}

// QueryOne runs a query expected to return at most one row.
func (p *Pool) QueryOne(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Exec runs a statement that returns no rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.db.ExecContext(ctx, query, args...)
}

// WithTransaction runs fn inside a BEGIN/COMMIT transaction, rolling back
// on any error returned by fn or by the commit itself. The connection is
// always released back to the pool regardless of outcome.
func (p *Pool) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			p.logger.Error("transaction-rollback-failed", zap.Error(rbErr), zap.NamedError("cause", err))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
