package history

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// MaxRecentLimit caps the limit accepted by GET /api/runs
const MaxRecentLimit = 500

// RunLister reads journaled runs, newest first
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
}

// RunHandlers serves the run journal over HTTP
type RunHandlers struct {
	runs RunLister
	log  zerolog.Logger
}

// NewRunHandlers creates run journal handlers
func NewRunHandlers(runs RunLister, log zerolog.Logger) *RunHandlers {
	return &RunHandlers{
		runs: runs,
		log:  log.With().Str("handler", "runs").Logger(),
	}
}

// RegisterRoutes registers the run journal routes
func (h *RunHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/runs", h.HandleGetRuns)
}

// HandleGetRuns returns the most recent runs
// GET /api/runs?limit=N
func (h *RunHandlers) HandleGetRuns(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRecentLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get runs")
		http.Error(w, "Failed to get runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []RunRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"data":  runs,
		"count": len(runs),
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
