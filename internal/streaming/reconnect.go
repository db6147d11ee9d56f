package streaming

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReconnectConfig controls the jittered exponential backoff used between
// dial attempts.
type ReconnectConfig struct {
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterPercent     float64
}

// reconnector runs connectFunc with exponential backoff and jitter until it
// succeeds or ctx is cancelled.
type reconnector struct {
	cfg     ReconnectConfig
	logger  *zap.Logger
	backoff time.Duration
	mu      sync.Mutex
}

func newReconnector(cfg ReconnectConfig, logger *zap.Logger) *reconnector {
	return &reconnector{cfg: cfg, logger: logger, backoff: cfg.InitialDelay}
}

func (r *reconnector) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backoff = r.cfg.InitialDelay
}

func (r *reconnector) next() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	jitter := rand.Float64() * r.cfg.JitterPercent
	d := time.Duration(float64(r.backoff) * (1.0 + jitter))
	newBackoff := time.Duration(float64(r.backoff) * r.cfg.BackoffMultiplier)
	if newBackoff > r.cfg.MaxDelay {
		newBackoff = r.cfg.MaxDelay
	}
	r.backoff = newBackoff
	return d
}

func (r *reconnector) run(ctx context.Context, connect func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		delay := r.next()
		r.logger.Info("stream-reconnect-attempt", zap.Duration("backoff", delay))
		reconnectAttemptsTotal.Inc()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := connect(ctx); err != nil {
			r.logger.Warn("stream-reconnect-failed", zap.Error(err))
			reconnectFailuresTotal.Inc()
			continue
		}

		r.reset()
		r.logger.Info("stream-reconnect-succeeded")
		return nil
	}
}
