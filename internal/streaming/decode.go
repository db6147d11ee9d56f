package streaming

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/riftline/predictarb/pkg/types"
)

// handleMessage normalizes one decoded frame into PriceUpdate/TradeEvent
// values per spec.md's four-event contract, updating the manager's
// last-known book state so a legacy single-sided price_change can still
// emit a PriceUpdate carrying both sides.
func (m *Manager) handleMessage(msg *types.WSMessage) {
	messagesReceivedTotal.WithLabelValues(string(msg.EventType)).Inc()

	switch msg.EventType {
	case types.WSEventBook:
		m.handleBook(msg)
	case types.WSEventPriceChange:
		if len(msg.PriceChanges) > 0 {
			m.handlePriceChangeArray(msg)
		} else {
			m.handlePriceChangeLegacy(msg)
		}
	case types.WSEventLastTradePrice:
		m.handleLastTradePrice(msg)
	case types.WSEventTickSizeChange:
		m.logger.Debug("stream-tick-size-change", zap.String("assetId", msg.AssetID), zap.String("newTickSize", msg.NewTickSize))
	default:
		messagesDroppedTotal.WithLabelValues("unknown_event_type").Inc()
	}
}

func (m *Manager) assetInfo(assetID string) (types.AssetInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.subscribed[assetID]
	return info, ok
}

func (m *Manager) stateFor(assetID string) *bookState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.books[assetID]
	if !ok {
		s = &bookState{}
		m.books[assetID] = s
	}
	return s
}

func (m *Manager) handleBook(msg *types.WSMessage) {
	info, ok := m.assetInfo(msg.AssetID)
	if !ok {
		messagesDroppedTotal.WithLabelValues("unknown_asset").Inc()
		return
	}

	var bestBid, bestBidSize, bestAsk, bestAskSize float64
	for _, lvl := range msg.Bids {
		price, size := lvl.ParsedPrice(), lvl.ParsedSize()
		if price > bestBid {
			bestBid, bestBidSize = price, size
		}
	}
	first := true
	for _, lvl := range msg.Asks {
		price, size := lvl.ParsedPrice(), lvl.ParsedSize()
		if first || price < bestAsk {
			bestAsk, bestAskSize = price, size
			first = false
		}
	}

	state := m.stateFor(msg.AssetID)
	m.mu.Lock()
	state.bid, state.bidSize, state.ask, state.askSize = bestBid, bestBidSize, bestAsk, bestAskSize
	m.mu.Unlock()

	m.emitUpdate(info, bestBid, bestAsk, bestAskSize, true, msg.Timestamp())
}

func (m *Manager) handlePriceChangeLegacy(msg *types.WSMessage) {
	info, ok := m.assetInfo(msg.AssetID)
	if !ok {
		messagesDroppedTotal.WithLabelValues("unknown_asset").Inc()
		return
	}
	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil {
		messagesDroppedTotal.WithLabelValues("unparseable_price").Inc()
		return
	}
	size, _ := strconv.ParseFloat(msg.Size, 64)

	state := m.stateFor(msg.AssetID)
	m.mu.Lock()
	switch types.Side(msg.SideR) {
	case types.SideBuy:
		state.bid, state.bidSize = price, size
	case types.SideSell:
		state.ask, state.askSize = price, size
	}
	bid, ask, askSize := state.bid, state.ask, state.askSize
	m.mu.Unlock()

	m.emitUpdate(info, bid, ask, askSize, true, msg.Timestamp())
}

func (m *Manager) handlePriceChangeArray(msg *types.WSMessage) {
	for _, change := range msg.PriceChanges {
		info, ok := m.assetInfo(change.AssetID)
		if !ok {
			messagesDroppedTotal.WithLabelValues("unknown_asset").Inc()
			continue
		}
		bid, _ := strconv.ParseFloat(change.BestBid, 64)
		ask, _ := strconv.ParseFloat(change.BestAsk, 64)

		state := m.stateFor(change.AssetID)
		m.mu.Lock()
		state.bid, state.ask = bid, ask
		askSize := state.askSize
		m.mu.Unlock()

		m.emitUpdate(info, bid, ask, askSize, askSize > 0, msg.Timestamp())
	}
}

func (m *Manager) handleLastTradePrice(msg *types.WSMessage) {
	info, ok := m.assetInfo(msg.AssetID)
	if !ok {
		messagesDroppedTotal.WithLabelValues("unknown_asset").Inc()
		return
	}
	price, err := strconv.ParseFloat(msg.TradePrice, 64)
	if err != nil {
		messagesDroppedTotal.WithLabelValues("unparseable_price").Inc()
		return
	}
	size, _ := strconv.ParseFloat(msg.TradeSize, 64)

	trade := types.TradeEvent{
		AssetID:   msg.AssetID,
		MarketID:  info.MarketID,
		Price:     price,
		Size:      size,
		Timestamp: msg.Timestamp(),
	}
	select {
	case m.trades <- trade:
	default:
		messagesDroppedTotal.WithLabelValues("trades_channel_full").Inc()
	}
}

func (m *Manager) emitUpdate(info types.AssetInfo, bid, ask, askSize float64, hasAskSize bool, ts time.Time) {
	spread := ask - bid
	var spreadPct float64
	if mid := (bid + ask) / 2; mid > 0 {
		spreadPct = spread / mid
	}

	update := types.PriceUpdate{
		AssetID:    info.AssetID,
		MarketID:   info.MarketID,
		Outcome:    info.Outcome,
		BestBid:    bid,
		BestAsk:    ask,
		Spread:     spread,
		SpreadPct:  spreadPct,
		AskSize:    askSize,
		HasAskSize: hasAskSize,
		Timestamp:  ts,
	}
	select {
	case m.updates <- update:
	default:
		messagesDroppedTotal.WithLabelValues("updates_channel_full").Inc()
	}
}
