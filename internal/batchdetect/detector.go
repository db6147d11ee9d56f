// Package batchdetect runs the five periodic SQL-aggregation opportunity
// detectors over persisted snapshots: arbitrage, wide spread, volume
// spike, thin book, and cross-market mispricing. Each kind is a single
// query against internal/persistence, not an in-memory channel consumer —
// the streaming hot path (internal/hotpath) already covers the
// latency-sensitive arbitrage case; this package covers the remaining
// four kinds plus a DB-backed cross-check on arbitrage.
package batchdetect

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/riftline/predictarb/internal/persistence"
)

// Config holds every detector's thresholds.
type Config struct {
	Window time.Duration

	ArbitrageThreshold float64

	WideSpreadThreshold float64

	VolumeSpikeMultiplier float64

	ThinBookMinVolume24h float64
	ThinBookMaxLiquidity float64

	MispricingMidLow  float64
	MispricingMidHigh float64
	MispricingMinDiff float64
}

// DefaultConfig returns spec.md §4.F's documented thresholds.
func DefaultConfig() Config {
	return Config{
		Window:                5 * time.Minute,
		ArbitrageThreshold:    0.995,
		WideSpreadThreshold:   0.05,
		VolumeSpikeMultiplier: 3.0,
		ThinBookMinVolume24h:  10000,
		ThinBookMaxLiquidity:  500,
		MispricingMidLow:      0.2,
		MispricingMidHigh:     0.8,
		MispricingMinDiff:     0.1,
	}
}

// Detector runs one pass of all five kinds and diff-upserts the result.
type Detector struct {
	cfg           Config
	logger        *zap.Logger
	queries       *persistence.BatchDetectRepository
	opportunities *persistence.OpportunityRepository
}

// New constructs a Detector.
func New(cfg Config, logger *zap.Logger, pool *persistence.Pool) *Detector {
	return &Detector{
		cfg:           cfg,
		logger:        logger,
		queries:       persistence.NewBatchDetectRepository(pool),
		opportunities: persistence.NewOpportunityRepository(pool),
	}
}

// RunOnce queries all five detector kinds, upserts the combined observed
// set in a single transaction, and returns the market IDs carrying a
// still-active ARBITRAGE opportunity this pass — the orchestrator seeds a
// paper-trading market row for each.
func (d *Detector) RunOnce(ctx context.Context) ([]string, error) {
	now := time.Now()
	var observed []persistence.ObservedOpportunity
	var arbitrageMarkets []string

	arb, err := d.timedQuery(ctx, "arbitrage", func() ([]persistence.ObservedOpportunity, error) {
		return d.queries.ArbitrageCandidates(ctx, d.cfg.Window, d.cfg.ArbitrageThreshold)
	})
	if err != nil {
		return nil, err
	}
	observed = append(observed, arb...)
	for _, o := range arb {
		arbitrageMarkets = append(arbitrageMarkets, o.MarketID)
	}

	wide, err := d.timedQuery(ctx, "wide_spread", func() ([]persistence.ObservedOpportunity, error) {
		return d.queries.WideSpreadCandidates(ctx, d.cfg.Window, d.cfg.WideSpreadThreshold)
	})
	if err != nil {
		return nil, err
	}
	observed = append(observed, wide...)

	spike, err := d.timedQuery(ctx, "volume_spike", func() ([]persistence.ObservedOpportunity, error) {
		return d.queries.VolumeSpikeCandidates(ctx, d.cfg.VolumeSpikeMultiplier)
	})
	if err != nil {
		return nil, err
	}
	observed = append(observed, spike...)

	thin, err := d.timedQuery(ctx, "thin_book", func() ([]persistence.ObservedOpportunity, error) {
		return d.queries.ThinBookCandidates(ctx, d.cfg.Window, d.cfg.ThinBookMinVolume24h, d.cfg.ThinBookMaxLiquidity)
	})
	if err != nil {
		return nil, err
	}
	observed = append(observed, thin...)

	mispricing, err := d.timedQuery(ctx, "mispricing", func() ([]persistence.ObservedOpportunity, error) {
		return d.queries.MispricingCandidates(ctx, d.cfg.Window, d.cfg.MispricingMidLow, d.cfg.MispricingMidHigh, d.cfg.MispricingMinDiff)
	})
	if err != nil {
		return nil, err
	}
	observed = append(observed, mispricing...)

	if err := d.opportunities.UpsertOpportunities(ctx, observed, now); err != nil {
		return nil, fmt.Errorf("upsert opportunities: %w", err)
	}

	activeOpportunities.WithLabelValues("arbitrage").Set(float64(len(arb)))
	activeOpportunities.WithLabelValues("wide_spread").Set(float64(len(wide)))
	activeOpportunities.WithLabelValues("volume_spike").Set(float64(len(spike)))
	activeOpportunities.WithLabelValues("thin_book").Set(float64(len(thin)))
	activeOpportunities.WithLabelValues("mispricing").Set(float64(len(mispricing)))

	d.logger.Info("batch-detect-pass-complete",
		zap.Int("arbitrage", len(arb)),
		zap.Int("wide-spread", len(wide)),
		zap.Int("volume-spike", len(spike)),
		zap.Int("thin-book", len(thin)),
		zap.Int("mispricing", len(mispricing)))

	return arbitrageMarkets, nil
}

func (d *Detector) timedQuery(ctx context.Context, kind string, query func() ([]persistence.ObservedOpportunity, error)) ([]persistence.ObservedOpportunity, error) {
	start := time.Now()
	candidates, err := query()
	passDurationSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		passErrorsTotal.WithLabelValues(kind).Inc()
		d.logger.Error("batch-detect-query-failed", zap.String("kind", kind), zap.Error(err))
		return nil, fmt.Errorf("%s candidates: %w", kind, err)
	}
	candidatesFoundTotal.WithLabelValues(kind).Add(float64(len(candidates)))
	return candidates, nil
}
