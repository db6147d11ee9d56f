package streaming

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftline/predictarb/pkg/types"
)

func newTestManager() *Manager {
	m := New(DefaultConfig("wss://example.invalid"), zap.NewNop())
	m.subscribed["asset-yes"] = types.AssetInfo{AssetID: "asset-yes", MarketID: "market-1", Outcome: types.OutcomeYes}
	return m
}

func TestHandleBookEmitsBestLevels(t *testing.T) {
	m := newTestManager()
	msg := &types.WSMessage{
		EventType: types.WSEventBook,
		AssetID:   "asset-yes",
		Bids:      []types.PriceLevel{{Price: "0.40", Size: "100"}, {Price: "0.45", Size: "50"}},
		Asks:      []types.PriceLevel{{Price: "0.52", Size: "60"}, {Price: "0.49", Size: "80"}},
	}
	m.handleMessage(msg)

	select {
	case update := <-m.updates:
		assert.Equal(t, "market-1", update.MarketID)
		assert.Equal(t, 0.45, update.BestBid)
		assert.Equal(t, 0.49, update.BestAsk)
		assert.InDelta(t, 0.04, update.Spread, 1e-9)
	default:
		t.Fatal("expected a PriceUpdate on m.updates")
	}
}

func TestHandlePriceChangeLegacyMergesOtherSide(t *testing.T) {
	m := newTestManager()
	m.handleMessage(&types.WSMessage{
		EventType: types.WSEventBook,
		AssetID:   "asset-yes",
		Bids:      []types.PriceLevel{{Price: "0.40", Size: "100"}},
		Asks:      []types.PriceLevel{{Price: "0.50", Size: "60"}},
	})
	<-m.updates // drain the book update

	m.handleMessage(&types.WSMessage{
		EventType: types.WSEventPriceChange,
		AssetID:   "asset-yes",
		Price:     "0.42",
		Size:      "30",
		SideR:     "BUY",
	})

	select {
	case update := <-m.updates:
		assert.Equal(t, 0.42, update.BestBid)
		assert.Equal(t, 0.50, update.BestAsk) // preserved from the prior book snapshot
	default:
		t.Fatal("expected a PriceUpdate on m.updates")
	}
}

func TestHandleLastTradePriceEmitsTradeNotUpdate(t *testing.T) {
	m := newTestManager()
	m.handleMessage(&types.WSMessage{
		EventType:  types.WSEventLastTradePrice,
		AssetID:    "asset-yes",
		TradePrice: "0.37",
		TradeSize:  "25",
	})

	select {
	case trade := <-m.trades:
		assert.Equal(t, 0.37, trade.Price)
		assert.Equal(t, 25.0, trade.Size)
		assert.Equal(t, "market-1", trade.MarketID)
	default:
		t.Fatal("expected a TradeEvent on m.trades")
	}

	select {
	case <-m.updates:
		t.Fatal("last_trade_price must never emit a PriceUpdate")
	default:
	}
}

func TestHandleUnknownAssetIsDropped(t *testing.T) {
	m := newTestManager()
	m.handleMessage(&types.WSMessage{
		EventType: types.WSEventBook,
		AssetID:   "asset-unknown",
		Bids:      []types.PriceLevel{{Price: "0.40", Size: "10"}},
		Asks:      []types.PriceLevel{{Price: "0.50", Size: "10"}},
	})
	select {
	case <-m.updates:
		t.Fatal("unsubscribed asset must not emit an update")
	default:
	}
}

func TestWSMessageTimestampParsesStringEncodedMillis(t *testing.T) {
	raw := []byte(`{"event_type":"book","asset_id":"a","timestamp":"1700000000000"}`)
	var msg types.WSMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	ts := msg.Timestamp()
	assert.False(t, ts.IsZero())
}
