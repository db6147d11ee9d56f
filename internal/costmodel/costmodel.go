// Package costmodel implements the pure, side-effect-free cost functions
// shared by the fast-path detector and the simulated execution engine.
package costmodel

import "github.com/riftline/predictarb/pkg/types"

// Config is the cost-model configuration; defaults match spec.md §4.B.
type Config struct {
	PlatformFeePct float64
	GasCostFixed   float64
	SlippagePct    float64
}

// DefaultConfig returns {0.02, 0.10, 0.005}.
func DefaultConfig() Config {
	return Config{PlatformFeePct: 0.02, GasCostFixed: 0.10, SlippagePct: 0.005}
}

// Costs decomposes a notional trade value into platform fee, fixed gas, and
// slippage cost.
func (c Config) Costs(value float64) types.Costs {
	platformFee := value * c.PlatformFeePct
	slippage := value * c.SlippagePct
	return types.Costs{
		PlatformFee:  platformFee,
		GasCost:      c.GasCostFixed,
		SlippageCost: slippage,
		TotalCost:    platformFee + c.GasCostFixed + slippage,
	}
}

// NetValue returns the signed cash-flow impact of a trade: negative for
// BUY (cash leaves, plus costs), positive for SELL (cash arrives, minus
// costs).
func NetValue(value float64, side types.Side, costs types.Costs) float64 {
	if side == types.SideBuy {
		return -(value + costs.TotalCost)
	}
	return value - costs.TotalCost
}

// SlippageEstimate scales a base slippage figure by how large the order is
// relative to available liquidity.
func SlippageEstimate(orderSize, liquidity, base float64) float64 {
	const epsilon = 1e-9
	denom := liquidity
	if denom < epsilon {
		denom = epsilon
	}
	ratio := orderSize / denom

	switch {
	case ratio < 0.1:
		return base * 1
	case ratio < 0.25:
		return base * 1.5
	case ratio < 0.5:
		return base * 2
	default:
		return base * 3
	}
}
