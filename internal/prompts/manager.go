package prompts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"inboxpilot/internal/inbox"
)

// Template is a single named prompt template. Placeholders {sender},
// {subject}, and {body} are substituted at format time.
type Template struct {
	Name        string `json:"name"`
	Prompt      string `json:"prompt"`
	Description string `json:"description"`
}

// Revision is one snapshot in the template version history.
type Revision struct {
	Timestamp time.Time           `json:"timestamp"`
	Templates map[string]Template `json:"prompts"`
	Note      string              `json:"note,omitempty"`
}

// Manager loads, formats, and persists prompt templates. When the filesystem
// is read-only (serverless deployments), edits stay in memory for the session.
type Manager struct {
	path      string
	templates map[string]Template
	history   []Revision
	readOnly  bool
	logger    *slog.Logger
}

// NewManager creates a Manager backed by a JSON file at path. A missing file
// is seeded with the default templates; an unwritable filesystem falls back
// to an in-memory copy instead of failing.
func NewManager(path string) *Manager {
	m := &Manager{
		path:   path,
		logger: slog.Default(),
	}
	m.load()
	return m
}

func (m *Manager) load() {
	data, err := os.ReadFile(m.path)
	if err == nil {
		var templates map[string]Template
		if jsonErr := json.Unmarshal(data, &templates); jsonErr == nil {
			m.templates = templates
			return
		}
		m.logger.Warn("prompt file is malformed, using defaults", "path", m.path)
	}

	m.templates = defaultTemplates()
	if err := m.save(""); err != nil {
		m.readOnly = true
		m.logger.Warn("prompt file is not writable, keeping templates in memory", "path", m.path, "error", err)
	}
}

func (m *Manager) save(note string) error {
	if !m.readOnly {
		if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
			return fmt.Errorf("failed to create prompts directory: %w", err)
		}
		data, err := json.MarshalIndent(m.templates, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal prompts: %w", err)
		}
		if err := os.WriteFile(m.path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write prompts file: %w", err)
		}
	}

	snapshot := make(map[string]Template, len(m.templates))
	for k, v := range m.templates {
		snapshot[k] = v
	}
	m.history = append(m.history, Revision{
		Timestamp: time.Now(),
		Templates: snapshot,
		Note:      note,
	})
	return nil
}

// Get returns the template registered under name.
func (m *Manager) Get(name string) (Template, bool) {
	t, ok := m.templates[name]
	return t, ok
}

// All returns every registered template.
func (m *Manager) All() map[string]Template {
	out := make(map[string]Template, len(m.templates))
	for k, v := range m.templates {
		out[k] = v
	}
	return out
}

// Update replaces the template under name and persists the change.
// On a read-only filesystem the change stays in memory for the session.
func (m *Manager) Update(name string, t Template) error {
	m.templates[name] = t
	if err := m.save("updated " + name); err != nil {
		m.readOnly = true
		m.logger.Warn("failed to persist prompt update, keeping in memory", "name", name, "error", err)
	}
	return nil
}

// History returns the template version history, oldest first.
func (m *Manager) History() []Revision {
	return m.history
}

// ReadOnly reports whether template persistence is disabled.
func (m *Manager) ReadOnly() bool {
	return m.readOnly
}

// Format substitutes email fields into the named template. Replacement is
// plain string substitution; brace characters inside template JSON examples
// stay untouched.
func (m *Manager) Format(name string, email inbox.Email) (string, error) {
	t, ok := m.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt template %q not found", name)
	}

	sender := email.Sender
	if sender == "" {
		sender = "Unknown"
	}
	subject := email.Subject
	if subject == "" {
		subject = "No Subject"
	}

	formatted := strings.ReplaceAll(t.Prompt, "{sender}", sender)
	formatted = strings.ReplaceAll(formatted, "{subject}", subject)
	formatted = strings.ReplaceAll(formatted, "{body}", email.Body)
	return formatted, nil
}

// defaultTemplates returns the built-in prompt set.
func defaultTemplates() map[string]Template {
	return map[string]Template{
		"categorization": {
			Name: "Email Categorization",
			Prompt: `Categorize this email into exactly one of: Work, Personal, Finance, Promotions, Updates, Urgent.

From: {sender}
Subject: {subject}
Body: {body}

Respond in JSON format:
{"category": "<category>", "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}`,
			Description: "Assigns a single category to an email",
		},
		"action_extraction": {
			Name: "Action Item Extraction",
			Prompt: `Extract concrete action items from this email. Include deadlines when mentioned.

From: {sender}
Subject: {subject}
Body: {body}

Respond in JSON format:
{"action_items": [{"task": "<task>", "deadline": "<deadline or null>", "priority": "<high|medium|low>"}]}`,
			Description: "Extracts tasks and deadlines",
		},
		"summarization": {
			Name: "Email Summarization",
			Prompt: `Summarize this email in at most two sentences.

From: {sender}
Subject: {subject}
Body: {body}

Respond in JSON format:
{"summary": "<summary>", "key_points": ["<point>"]}`,
			Description: "Produces a short summary",
		},
		"auto_reply": {
			Name: "Auto-Reply Generator",
			Prompt: `Draft a professional reply to this email. Keep it concise and actionable.

From: {sender}
Subject: {subject}
Body: {body}

Respond in JSON format:
{"subject": "<reply subject>", "body": "<reply body>", "tone": "<tone used>"}`,
			Description: "Generates reply drafts",
		},
	}
}
