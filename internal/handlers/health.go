package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"inboxpilot/internal/contextutil"
	"inboxpilot/internal/index"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	db                 *sql.DB
	idx                *index.Index
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sql.DB, idx *index.Index) *HealthHandler {
	return &HealthHandler{
		db:                 db,
		idx:                idx,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`
	// Timestamp of the health check
	Timestamp string `json:"timestamp"`
	// Individual check results
	Checks map[string]string `json:"checks"`
	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles GET /api/health. Returns 200 when the draft store is
// reachable and the index has been built, 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	if err := h.db.PingContext(checkCtx); err != nil {
		logger.WarnContext(ctx, "draft store health check failed", "error", err)
		checks["draft_store"] = "error"
		issues = append(issues, "draft_store_unavailable")
	} else {
		checks["draft_store"] = "ok"
	}

	if h.idx.Ready() {
		checks["index"] = "ok"
	} else {
		checks["index"] = "not_ready"
		issues = append(issues, "index_not_built")
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	})
}
