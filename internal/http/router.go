package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"inboxpilot/internal/agent"
	"inboxpilot/internal/drafts"
	"inboxpilot/internal/handlers"
	"inboxpilot/internal/index"
	"inboxpilot/internal/processor"
	"inboxpilot/internal/retrieval"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Agent     *agent.Agent
	Index     *index.Index
	Retriever *retrieval.Retriever
	Processor *processor.Processor
	Drafts    *drafts.Manager
	DB        *sql.DB
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.Agent, deps.Index)
	searchHandler := handlers.NewSearchHandler(deps.Retriever)
	statsHandler := handlers.NewStatsHandler(deps.Retriever)
	processHandler := handlers.NewProcessHandler(deps.Processor, deps.Index)
	draftsHandler := handlers.NewDraftsHandler(deps.Drafts, deps.Index)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Index)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Method(http.MethodPost, "/search", searchHandler)
		r.Method(http.MethodGet, "/stats", statsHandler)
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Post("/process", processHandler.ProcessAll)
		r.Post("/emails/{id}/process", processHandler.ProcessOne)
		r.Get("/actions", processHandler.ActionItems)

		r.Post("/emails/{id}/reply", draftsHandler.Reply)
		r.Post("/drafts", draftsHandler.Create)
		r.Get("/drafts", draftsHandler.List)
		r.Delete("/drafts/{id}", draftsHandler.Delete)
		r.Get("/drafts/{id}/export", draftsHandler.Export)
	})

	return r
}
