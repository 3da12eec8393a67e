package handlers

import (
	"net/http"
	"time"

	"github.com/retainhq/retain/internal/storage"
)

// StatsHandler handles statistics endpoint requests.
type StatsHandler struct {
	store storage.Store
}

// NewStatsHandler creates a new StatsHandler instance.
func NewStatsHandler(store storage.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

// GetStats handles GET /api/stats - returns review statistics: totals,
// due-now count, per-state breakdown, today's review count, accuracy and
// streak.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context(), time.Now())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute stats", err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
