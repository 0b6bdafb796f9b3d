package handlers

import (
	"net/http"

	"inboxpilot/internal/retrieval"
)

// StatsHandler serves aggregate inbox statistics.
type StatsHandler struct {
	retriever *retrieval.Retriever
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(retriever *retrieval.Retriever) *StatsHandler {
	return &StatsHandler{retriever: retriever}
}

// ServeHTTP handles GET /api/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, h.retriever.Stats())
}
