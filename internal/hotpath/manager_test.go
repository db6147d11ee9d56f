package hotpath_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftline/predictarb/internal/hotpath"
	"github.com/riftline/predictarb/pkg/types"
)

type fakeFirer struct {
	calls int
}

func (f *fakeFirer) FireFastArbitrage(ctx context.Context, marketID string, yesBid, yesAsk, yesAskSize, noBid, noAsk, noAskSize, size float64) (string, string, error) {
	f.calls++
	return "yes-order", "no-order", nil
}

func update(marketID string, outcome types.Outcome, bid, ask, askSize float64) types.PriceUpdate {
	return types.PriceUpdate{
		MarketID: marketID, Outcome: outcome, BestBid: bid, BestAsk: ask,
		AskSize: askSize, HasAskSize: true, Timestamp: time.Now(),
	}
}

// TestIngestFiresOnceWhenCrossed reproduces spec.md §8 scenario S1: once
// both legs are known and their asks sum below threshold, a fast-path fire
// is attempted.
func TestIngestFiresOnceWhenCrossed(t *testing.T) {
	firer := &fakeFirer{}
	m := hotpath.New(hotpath.DefaultConfig(), zap.NewNop(), firer)
	ctx := context.Background()

	m.Ingest(ctx, update("market-1", types.OutcomeYes, 0.45, 0.47, 100))
	assert.Equal(t, 0, firer.calls, "must not fire before both legs are known")

	m.Ingest(ctx, update("market-1", types.OutcomeNo, 0.48, 0.50, 100))
	assert.Equal(t, 1, firer.calls, "0.47+0.50=0.97 < 0.995 threshold should fire")
}

// TestIngestRateLimitsRepeatedFires reproduces spec.md §8 scenario S2: a
// second crossed update for the same market within the rate-limit window
// does not fire again.
func TestIngestRateLimitsRepeatedFires(t *testing.T) {
	firer := &fakeFirer{}
	cfg := hotpath.DefaultConfig()
	cfg.RateLimit = time.Hour
	m := hotpath.New(cfg, zap.NewNop(), firer)
	ctx := context.Background()

	m.Ingest(ctx, update("market-1", types.OutcomeYes, 0.45, 0.47, 100))
	m.Ingest(ctx, update("market-1", types.OutcomeNo, 0.48, 0.50, 100))
	require.Equal(t, 1, firer.calls)

	// A fresh crossed ask update for the same market, still within the
	// rate-limit window, must not fire a second time.
	m.Ingest(ctx, update("market-1", types.OutcomeYes, 0.44, 0.46, 100))
	assert.Equal(t, 1, firer.calls)
}

// TestIngestDoesNotFireWhenNotCrossed reproduces the non-arbitrage case:
// combined asks at or above threshold never fire.
func TestIngestDoesNotFireWhenNotCrossed(t *testing.T) {
	firer := &fakeFirer{}
	m := hotpath.New(hotpath.DefaultConfig(), zap.NewNop(), firer)
	ctx := context.Background()

	m.Ingest(ctx, update("market-1", types.OutcomeYes, 0.49, 0.50, 100))
	m.Ingest(ctx, update("market-1", types.OutcomeNo, 0.49, 0.50, 100))
	assert.Equal(t, 0, firer.calls)
}

// fireN crosses and fires n distinct markets so each fire records its own
// execution sample, unaffected by the per-market rate limit.
func fireN(t *testing.T, m *hotpath.Manager, ctx context.Context, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		marketID := "market-" + strconv.Itoa(i)
		m.Ingest(ctx, update(marketID, types.OutcomeYes, 0.45, 0.47, 100))
		m.Ingest(ctx, update(marketID, types.OutcomeNo, 0.48, 0.50, 100))
	}
}

// TestLatencySummaryTracksSampleCountAndWindows reproduces spec.md §4.E's
// bounded ring of past executions (at most 100): firing fewer than the ring
// capacity keeps SampleCount exact and bounds the dashboard slice at 10.
func TestLatencySummaryTracksSampleCountAndWindows(t *testing.T) {
	firer := &fakeFirer{}
	m := hotpath.New(hotpath.DefaultConfig(), zap.NewNop(), firer)
	ctx := context.Background()

	fireN(t, m, ctx, 15)

	summary := m.LatencySummary()
	assert.Equal(t, 15, summary.SampleCount)
	assert.Len(t, summary.Last10TotalLatencyMs, 10, "dashboard slice caps at 10 even with 15 samples")
	assert.GreaterOrEqual(t, summary.AvgTotalLatencyMs20, 0.0)
	assert.GreaterOrEqual(t, summary.AvgDetectionLatencyMs20, 0.0)
	assert.GreaterOrEqual(t, summary.AvgExecutionLatencyMs20, 0.0)
	assert.GreaterOrEqual(t, summary.MaxTotalLatencyMs, summary.MinTotalLatencyMs)
}

// TestLatencySummaryRingWrapsPastCapacity reproduces the ring's 100-sample
// cap: firing well past capacity keeps SampleCount equal to the number of
// fires actually recorded, and the dashboard slice still holds exactly 10.
func TestLatencySummaryRingWrapsPastCapacity(t *testing.T) {
	firer := &fakeFirer{}
	m := hotpath.New(hotpath.DefaultConfig(), zap.NewNop(), firer)
	ctx := context.Background()

	fireN(t, m, ctx, 130)

	summary := m.LatencySummary()
	assert.Equal(t, 130, summary.SampleCount, "SampleCount is a running total, not bounded by ring capacity")
	assert.Len(t, summary.Last10TotalLatencyMs, 10)
}

// TestLatencySummaryEmptyBeforeAnyFire ensures a fresh Manager reports a
// zero-valued summary rather than panicking on an empty ring.
func TestLatencySummaryEmptyBeforeAnyFire(t *testing.T) {
	firer := &fakeFirer{}
	m := hotpath.New(hotpath.DefaultConfig(), zap.NewNop(), firer)

	summary := m.LatencySummary()
	assert.Equal(t, 0, summary.SampleCount)
	assert.Empty(t, summary.Last10TotalLatencyMs)
	assert.Zero(t, summary.AvgTotalLatencyMs20)
}
