package types

import "strconv"

// OrderBookLevel is a single depth level: price is a decimal probability in
// [0, 1], size is the resting quantity at that price.
type OrderBookLevel struct {
	Price float64
	Size  float64
}

// TokenLeg is the best-known top-of-book for one leg (YES or NO) of a market.
type TokenLeg struct {
	TokenID string
	Outcome Outcome
	BestBid float64
	BestAsk float64
}

// Spread returns ask - bid.
func (t TokenLeg) Spread() float64 {
	return t.BestAsk - t.BestBid
}

// Mid returns (bid+ask)/2.
func (t TokenLeg) Mid() float64 {
	return (t.BestBid + t.BestAsk) / 2
}

// SpreadPct returns spread/mid, or 0 if mid is 0.
func (t TokenLeg) SpreadPct() float64 {
	mid := t.Mid()
	if mid == 0 {
		return 0
	}
	return t.Spread() / mid
}

// PriceLevel is the raw wire shape of a single orderbook depth level before
// numeric parsing — prices and sizes arrive as JSON strings on the wire.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ParsedPrice parses Price, returning 0 on malformed input.
func (l PriceLevel) ParsedPrice() float64 {
	v, _ := strconv.ParseFloat(l.Price, 64)
	return v
}

// ParsedSize parses Size, returning 0 on malformed input.
func (l PriceLevel) ParsedSize() float64 {
	v, _ := strconv.ParseFloat(l.Size, 64)
	return v
}
