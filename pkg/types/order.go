package types

import "time"

// OrderStatus is the closed set of states an Order transitions through.
// Transitions only go PENDING -> {FILLED, CANCELLED, EXPIRED}; terminal
// states are absorbing.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderFilled    OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderExpired   OrderStatus = "EXPIRED"
)

// Order is a simulated limit order.
type Order struct {
	OrderID   string
	MarketID  string
	Side      Side
	TokenSide Outcome
	Price     float64
	Size      float64
	Status    OrderStatus

	// Book snapshot at placement time.
	PlacedBestBid float64
	PlacedBestAsk float64
	PlacedSpread  float64

	CreatedAt time.Time
	UpdatedAt time.Time

	FillPrice *float64
	FillSize  *float64
}
