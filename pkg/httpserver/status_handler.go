package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/riftline/predictarb/pkg/types"
)

// StatusProvider supplies the orchestrator's latest in-memory status
// snapshot. internal/orchestrator implements this; httpserver never
// imports orchestrator directly, keeping the dependency one-directional.
type StatusProvider interface {
	Status() types.StatusSnapshot
}

// StatusHandler serves the dashboard task's latest snapshot.
type StatusHandler struct {
	provider StatusProvider
	logger   *zap.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(provider StatusProvider, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{provider: provider, logger: logger}
}

// HandleStatus handles GET /api/status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := h.provider.Status()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.logger.Error("failed-to-encode-status-response", zap.Error(err))
	}
}
