package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"inboxpilot/internal/inbox"
	"inboxpilot/internal/llm"
	"inboxpilot/internal/prompts"
	"inboxpilot/internal/storage"
)

// TextGenerator is the draft manager's view of the LLM gateway.
type TextGenerator interface {
	Generate(ctx context.Context, req llm.Request) llm.Result
}

// Content is the model-generated draft body stored with each record.
type Content struct {
	Subject          string   `json:"subject"`
	Body             string   `json:"body"`
	Tone             string   `json:"tone,omitempty"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
}

// Manager generates and stores email drafts. Drafts are never sent.
type Manager struct {
	generator TextGenerator
	prompts   *prompts.Manager
	store     storage.DraftStore
	logger    *slog.Logger
}

// New creates a draft Manager.
func New(generator TextGenerator, pm *prompts.Manager, store storage.DraftStore) *Manager {
	return &Manager{
		generator: generator,
		prompts:   pm,
		store:     store,
		logger:    slog.Default(),
	}
}

// GenerateReply creates a reply draft for an email, optionally steered by
// custom instructions, and persists it.
func (m *Manager) GenerateReply(ctx context.Context, original inbox.Email, customInstructions string) (*storage.DraftRecord, error) {
	prompt, err := m.prompts.Format("auto_reply", original)
	if err != nil {
		return nil, err
	}
	if customInstructions != "" {
		prompt += "\n\nAdditional Instructions: " + customInstructions
	}

	result := m.generator.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: 0.7,
		JSONMode:    true,
	})
	if !result.Success {
		return nil, fmt.Errorf("failed to generate reply draft: %w", result.Err)
	}

	content, err := json.Marshal(result.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft content: %w", err)
	}

	draft := &storage.DraftRecord{
		ID:                 uuid.New().String(),
		Kind:               "reply",
		OriginalEmailID:    original.ID,
		InReplyToSender:    original.Sender,
		InReplyToSubject:   original.Subject,
		Content:            string(content),
		CustomInstructions: customInstructions,
	}
	if err := m.store.Save(ctx, draft); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "reply draft generated", "draft_id", draft.ID, "email_id", original.ID)
	return draft, nil
}

// GenerateNew creates a draft for a brand-new email from recipient, subject,
// context, and desired tone, and persists it.
func (m *Manager) GenerateNew(ctx context.Context, recipient, subject, emailContext, tone string) (*storage.DraftRecord, error) {
	if tone == "" {
		tone = "professional"
	}

	prompt := fmt.Sprintf(`Generate a new email with the following details:

Recipient: %s
Subject: %s
Context: %s
Tone: %s

Create a complete, professional email that addresses the context appropriately.

Respond in JSON format:
{
  "subject": "<email subject>",
  "body": "<email body>",
  "tone": "<actual tone used>",
  "suggested_actions": ["<follow-up 1>", "<follow-up 2>"]
}`, recipient, subject, emailContext, tone)

	result := m.generator.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: 0.7,
		JSONMode:    true,
	})
	if !result.Success {
		return nil, fmt.Errorf("failed to generate email draft: %w", result.Err)
	}

	content, err := json.Marshal(result.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft content: %w", err)
	}

	draft := &storage.DraftRecord{
		ID:        uuid.New().String(),
		Kind:      "new",
		Recipient: recipient,
		Content:   string(content),
	}
	if err := m.store.Save(ctx, draft); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "new email draft generated", "draft_id", draft.ID, "recipient", recipient)
	return draft, nil
}

// Get returns a stored draft by ID.
func (m *Manager) Get(ctx context.Context, id string) (*storage.DraftRecord, error) {
	return m.store.GetByID(ctx, id)
}

// List returns all stored drafts, newest first.
func (m *Manager) List(ctx context.Context) ([]*storage.DraftRecord, error) {
	return m.store.ListAll(ctx)
}

// Delete removes a stored draft.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// ExportText renders a draft as human-readable plain text.
func (m *Manager) ExportText(ctx context.Context, id string) (string, error) {
	draft, err := m.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	var content Content
	// Content is model output; tolerate shape drift and export what we have.
	_ = json.Unmarshal([]byte(draft.Content), &content)

	var b strings.Builder
	b.WriteString("Draft Email\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Created: %s\n", draft.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Status: %s\n\n", draft.Status)

	if draft.Kind == "reply" {
		b.WriteString("In Reply To:\n")
		fmt.Fprintf(&b, "  From: %s\n", draft.InReplyToSender)
		fmt.Fprintf(&b, "  Subject: %s\n\n", draft.InReplyToSubject)
	}

	subject := content.Subject
	if subject == "" {
		subject = "No Subject"
	}
	fmt.Fprintf(&b, "Subject: %s\n\nBody:\n%s\n", subject, content.Body)

	if len(content.SuggestedActions) > 0 {
		b.WriteString("\nSuggested Follow-ups:\n")
		for _, action := range content.SuggestedActions {
			fmt.Fprintf(&b, "  - %s\n", action)
		}
	}

	return b.String(), nil
}
