package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/riftline/predictarb/internal/discovery"
	"github.com/riftline/predictarb/internal/hotpath"
)

// MarketHandler serves the current hot-cache snapshot for a market.
type MarketHandler struct {
	hotpath   *hotpath.Manager
	discovery *discovery.Service
	logger    *zap.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(hp *hotpath.Manager, disc *discovery.Service, logger *zap.Logger) *MarketHandler {
	return &MarketHandler{hotpath: hp, discovery: disc, logger: logger}
}

// LegSnapshot is the best-known top-of-book for one leg.
type LegSnapshot struct {
	Outcome string  `json:"outcome"`
	Bid     float64 `json:"bid"`
	Ask     float64 `json:"ask"`
}

// MarketResponse is the HTTP response for GET /api/markets?id=<market-id>.
type MarketResponse struct {
	MarketID string        `json:"market_id"`
	Question string        `json:"question"`
	Legs     []LegSnapshot `json:"legs"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleMarket handles GET /api/markets?id=<market-id> requests.
func (h *MarketHandler) HandleMarket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	marketID := r.URL.Query().Get("id")
	if marketID == "" {
		h.writeError(w, "missing required query parameter: id", http.StatusBadRequest)
		return
	}

	prices, found := h.hotpath.Snapshot(marketID)
	if !found {
		h.writeError(w, "market not found or not yet tracked", http.StatusNotFound)
		return
	}

	question := ""
	if h.discovery != nil {
		if market := h.discovery.GetMarket(marketID); market != nil {
			question = market.Question
		}
	}

	response := MarketResponse{
		MarketID: marketID,
		Question: question,
		Legs: []LegSnapshot{
			{Outcome: "YES", Bid: prices.YesBid, Ask: prices.YesAsk},
			{Outcome: "NO", Bid: prices.NoBid, Ask: prices.NoAsk},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *MarketHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
