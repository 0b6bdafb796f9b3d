package inbox

import (
	"encoding/json"
	"fmt"
	"os"
)

// Email represents a single email in the mock inbox.
// The core never mutates emails; all derived state lives in the index.
type Email struct {
	// ID is the unique, stable identifier for the email.
	ID string `json:"id"`
	// Sender is the sender's email address.
	Sender string `json:"sender"`
	// SenderName is the sender's display name.
	SenderName string `json:"sender_name"`
	// Subject is the subject line.
	Subject string `json:"subject"`
	// Body is the full body text.
	Body string `json:"body"`
	// Timestamp is an ISO-8601 timestamp string.
	Timestamp string `json:"timestamp"`
	// Read reports whether the email has been opened.
	Read bool `json:"read"`
	// Starred reports whether the user starred the email.
	Starred bool `json:"starred"`
	// Important reports whether the email is flagged important.
	Important bool `json:"important"`
	// Folder is the folder name. Empty means "inbox".
	Folder string `json:"folder"`
}

// FolderOrDefault returns the email's folder, defaulting to "inbox" when unset.
func (e Email) FolderOrDefault() string {
	if e.Folder == "" {
		return "inbox"
	}
	return e.Folder
}

// Load reads an inbox from a JSON file containing an array of emails.
// Missing fields default to zero values; no per-field validation is applied.
func Load(path string) ([]Email, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox file: %w", err)
	}

	var emails []Email
	if err := json.Unmarshal(data, &emails); err != nil {
		return nil, fmt.Errorf("failed to parse inbox file: %w", err)
	}

	return emails, nil
}
