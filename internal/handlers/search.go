package handlers

import (
	"encoding/json"
	"net/http"

	"inboxpilot/internal/contextutil"
	"inboxpilot/internal/retrieval"
)

// SearchHandler handles HTTP requests for relevance retrieval.
type SearchHandler struct {
	retriever *retrieval.Retriever
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(retriever *retrieval.Retriever) *SearchHandler {
	return &SearchHandler{retriever: retriever}
}

// SearchFilters mirrors retrieval.Filters for the HTTP layer.
type SearchFilters struct {
	Sender    string `json:"sender,omitempty"`
	Starred   *bool  `json:"starred,omitempty"`
	Unread    *bool  `json:"unread,omitempty"`
	Important *bool  `json:"important,omitempty"`
	Folder    string `json:"folder,omitempty"`
}

// SearchRequest represents the HTTP request payload for retrieval.
type SearchRequest struct {
	Query   string         `json:"query"`
	TopK    int            `json:"top_k,omitempty"`
	Filters *SearchFilters `json:"filters,omitempty"`
}

// SearchResponse represents the HTTP response payload for retrieval.
type SearchResponse struct {
	Success bool               `json:"success"`
	Results []retrieval.Scored `json:"results"`
}

// ServeHTTP handles POST /api/search.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var filters *retrieval.Filters
	if req.Filters != nil {
		filters = &retrieval.Filters{
			Sender:    req.Filters.Sender,
			Starred:   req.Filters.Starred,
			Unread:    req.Filters.Unread,
			Important: req.Filters.Important,
			Folder:    req.Filters.Folder,
		}
	}

	results := h.retriever.Retrieve(req.Query, req.TopK, filters)
	logger.InfoContext(ctx, "search completed", "query", req.Query, "results", len(results))

	writeJSON(w, http.StatusOK, SearchResponse{
		Success: true,
		Results: results,
	})
}
