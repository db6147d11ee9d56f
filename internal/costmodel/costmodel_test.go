package costmodel

import (
	"math"
	"testing"

	"github.com/riftline/predictarb/pkg/types"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCostsDefault(t *testing.T) {
	cfg := DefaultConfig()
	costs := cfg.Costs(24.0)
	if !approxEqual(costs.PlatformFee, 0.48) {
		t.Errorf("PlatformFee = %v, want 0.48", costs.PlatformFee)
	}
	if !approxEqual(costs.GasCost, 0.10) {
		t.Errorf("GasCost = %v, want 0.10", costs.GasCost)
	}
	if !approxEqual(costs.SlippageCost, 0.12) {
		t.Errorf("SlippageCost = %v, want 0.12", costs.SlippageCost)
	}
	want := 0.48 + 0.10 + 0.12
	if !approxEqual(costs.TotalCost, want) {
		t.Errorf("TotalCost = %v, want %v", costs.TotalCost, want)
	}
}

func TestNetValueBuyAndSell(t *testing.T) {
	cfg := DefaultConfig()
	value := 14.0
	costs := cfg.Costs(value)

	buy := NetValue(value, types.SideBuy, costs)
	if !approxEqual(-buy, value+costs.TotalCost) {
		t.Errorf("|NetValue BUY| = %v, want %v", -buy, value+costs.TotalCost)
	}

	sell := NetValue(value, types.SideSell, costs)
	if !approxEqual(sell, value-costs.TotalCost) {
		t.Errorf("NetValue SELL = %v, want %v", sell, value-costs.TotalCost)
	}
}

func TestSlippageEstimateBuckets(t *testing.T) {
	cases := []struct {
		orderSize, liquidity, want float64
	}{
		{5, 1000, 1},   // ratio 0.005 < 0.1
		{150, 1000, 1.5}, // ratio 0.15 < 0.25
		{400, 1000, 2}, // ratio 0.4 < 0.5
		{900, 1000, 3}, // ratio 0.9 >= 0.5
	}
	for _, c := range cases {
		got := SlippageEstimate(c.orderSize, c.liquidity, 1.0)
		if !approxEqual(got, c.want) {
			t.Errorf("SlippageEstimate(%v, %v) = %v, want %v", c.orderSize, c.liquidity, got, c.want)
		}
	}
}
