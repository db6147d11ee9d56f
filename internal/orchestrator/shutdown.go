package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown stops every ticker, cancels the shared context, performs a
// best-effort final flush and P&L snapshot, and waits for every goroutine
// to exit. Per spec.md §7, shutdown always returns nil even if a
// best-effort step fails — the process still exits 0.
func (o *Orchestrator) Shutdown() error {
	o.logger.Info("orchestrator-shutting-down")
	o.healthChecker.SetReady(false)

	for _, ticker := range o.tickers {
		ticker.Stop()
	}

	o.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := o.stream.Close(); err != nil {
		o.logger.Error("streaming-manager-close-error", zap.Error(err))
	}

	if err := o.flushBuffer(shutdownCtx); err != nil {
		o.logger.Error("final-flush-error", zap.Error(err))
	}

	if err := o.recordPnLSnapshot(shutdownCtx); err != nil {
		o.logger.Error("final-pnl-snapshot-error", zap.Error(err))
	}

	if err := o.httpServer.Shutdown(shutdownCtx); err != nil {
		o.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	o.wg.Wait()

	if err := o.pool.Close(); err != nil {
		o.logger.Error("pool-close-error", zap.Error(err))
	}

	o.logger.Info("orchestrator-shutdown-complete")
	return nil
}
