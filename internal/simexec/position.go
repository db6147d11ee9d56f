package simexec

// applyTradeToPosition implements the position math of spec.md §4.C: given
// the existing (quantity, costBasis) and a new signed trade (+size for BUY,
// -size for SELL) at price, returns the updated (quantity, averageCost,
// costBasis).
func applyTradeToPosition(q, costBasis, price, signedSize float64) (newQty, newAvg, newBasis float64) {
	qPrime := q + signedSize

	switch {
	case q == 0:
		newQty = signedSize
		newAvg = price
		newBasis = price * absf(signedSize)

	case signedSize > 0 && qPrime > 0:
		// BUY, same side (or opening long further).
		newBasis = costBasis + price*signedSize
		newQty = qPrime
		newAvg = newBasis / newQty

	case signedSize > 0 && qPrime < 0:
		// BUY that reduces a short but leaves the position short.
		newQty = qPrime
		newBasis = absf(qPrime) * price
		newAvg = price

	case signedSize < 0 && qPrime > 0:
		// SELL reducing a long without flipping.
		ratio := 1 - absf(signedSize)/q
		newBasis = costBasis * ratio
		newQty = qPrime
		newAvg = currentAvgOrZero(costBasis, q)

	case signedSize < 0 && qPrime < 0:
		// SELL that flips long -> short (or opens a new short).
		newQty = qPrime
		newBasis = absf(qPrime) * price
		newAvg = price

	default:
		// qPrime == 0: position closes.
		newQty = 0
		newBasis = 0
		newAvg = 0
	}

	if newQty == 0 {
		newBasis = 0
		newAvg = 0
	}
	return newQty, newAvg, newBasis
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func currentAvgOrZero(costBasis, q float64) float64 {
	if q == 0 {
		return 0
	}
	return costBasis / q
}
