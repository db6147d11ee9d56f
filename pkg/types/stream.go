package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// WSEventType is the closed set of inbound streaming message kinds.
type WSEventType string

const (
	WSEventBook            WSEventType = "book"
	WSEventPriceChange     WSEventType = "price_change"
	WSEventLastTradePrice  WSEventType = "last_trade_price"
	WSEventTickSizeChange  WSEventType = "tick_size_change"
)

// WSMessage is the raw inbound frame shape, wide enough to cover all four
// event kinds; fields irrelevant to a given EventType are left zero.
type WSMessage struct {
	EventType    WSEventType     `json:"event_type"`
	AssetID      string          `json:"asset_id"`
	Market       string          `json:"market"`
	TimestampRaw json.RawMessage `json:"timestamp,omitempty"`

	// book
	Bids []PriceLevel `json:"bids,omitempty"`
	Asks []PriceLevel `json:"asks,omitempty"`

	// price_change (legacy single-change form)
	Price string `json:"price,omitempty"`
	Size  string `json:"size,omitempty"`
	SideR string `json:"side,omitempty"`

	// price_change (array form)
	PriceChanges []WSPriceChange `json:"price_changes,omitempty"`

	// last_trade_price
	TradePrice string `json:"price_str,omitempty"`
	TradeSize  string `json:"size_str,omitempty"`

	// tick_size_change
	NewTickSize string `json:"new_tick_size,omitempty"`
}

// WSPriceChange is one element of the new-form price_changes array.
type WSPriceChange struct {
	AssetID string `json:"asset_id"`
	BestBid string `json:"best_bid,omitempty"`
	BestAsk string `json:"best_ask,omitempty"`
}

// Timestamp parses the (possibly string- or number-encoded) timestamp.
func (m *WSMessage) Timestamp() time.Time {
	if len(m.TimestampRaw) == 0 {
		return time.Time{}
	}
	var asStr string
	if err := json.Unmarshal(m.TimestampRaw, &asStr); err == nil {
		if ms, err := strconv.ParseInt(asStr, 10, 64); err == nil {
			return time.UnixMilli(ms)
		}
		return time.Time{}
	}
	var asNum int64
	if err := json.Unmarshal(m.TimestampRaw, &asNum); err == nil {
		return time.UnixMilli(asNum)
	}
	return time.Time{}
}

// PriceUpdate is the normalized event the streaming client emits downstream.
type PriceUpdate struct {
	AssetID   string
	MarketID  string
	Outcome   Outcome
	BestBid   float64
	BestAsk   float64
	Spread    float64
	SpreadPct float64
	// AskSize is carried through when the source message supplies it (book
	// snapshots always do; price_change merges preserve the previous size
	// when not supplied). No bid size is carried.
	AskSize   float64
	HasAskSize bool
	Timestamp time.Time
}

// TradeEvent is emitted for last_trade_price messages; it never updates the
// hot cache's best-bid/ask.
type TradeEvent struct {
	AssetID   string
	MarketID  string
	Price     float64
	Size      float64
	Side      Side
	Timestamp time.Time
}

// AssetInfo describes a subscribed asset id for reconciliation bookkeeping.
type AssetInfo struct {
	AssetID   string
	MarketID  string
	Outcome   Outcome
	Question  string
	Category  string
	Volume24h float64
}
