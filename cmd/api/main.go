package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"inboxpilot/internal/agent"
	"inboxpilot/internal/config"
	"inboxpilot/internal/drafts"
	"inboxpilot/internal/http"
	"inboxpilot/internal/inbox"
	"inboxpilot/internal/index"
	"inboxpilot/internal/llm"
	"inboxpilot/internal/processor"
	"inboxpilot/internal/prompts"
	"inboxpilot/internal/retrieval"
	"inboxpilot/internal/storage"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize draft storage
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Load the inbox and build the lexical index up front. The agent fails
	// fast on an unbuilt index, so indexing happens here, not lazily.
	emails, err := inbox.Load(cfg.InboxPath)
	if err != nil {
		log.Fatalf("Failed to load inbox: %v", err)
	}
	idx := index.New()
	idx.Build(emails)
	slog.Info("Inbox indexed", "emails", idx.Len())

	retriever := retrieval.New(idx)

	// Create LLM client (external service layer). Construction fails without
	// a credential.
	llmClient, err := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	promptManager := prompts.NewManager(cfg.PromptsPath)
	inboxAgent := agent.New(idx, retriever, llmClient)
	emailProcessor := processor.New(llmClient, promptManager)
	draftManager := drafts.New(llmClient, promptManager, storage.NewDraftRepo(db))
	slog.Info("Agent initialized", "model", cfg.LLMModelName)

	// Create router with dependencies
	deps := &http.Deps{
		Agent:     inboxAgent,
		Index:     idx,
		Retriever: retriever,
		Processor: emailProcessor,
		Drafts:    draftManager,
		DB:        db,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
