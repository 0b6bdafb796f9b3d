package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_draft_store.go -package=mocks inboxpilot/internal/storage DraftStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// DraftRecord is a stored email draft. Drafts are never sent; Status is
// always "draft".
type DraftRecord struct {
	ID                 string
	Kind               string // "reply" or "new"
	OriginalEmailID    string
	Recipient          string
	InReplyToSender    string
	InReplyToSubject   string
	Content            string // JSON-encoded draft content from the model
	CustomInstructions string
	Status             string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DraftStore defines the interface for draft storage operations.
type DraftStore interface {
	// Save inserts a new draft or replaces an existing one by ID.
	Save(ctx context.Context, draft *DraftRecord) error
	// GetByID gets a draft by ID. Returns nil and ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DraftRecord, error)
	// ListAll returns all drafts, newest first.
	ListAll(ctx context.Context) ([]*DraftRecord, error)
	// Delete removes a draft by ID. Returns ErrNotFound if not found.
	Delete(ctx context.Context, id string) error
}

// DraftRepo provides methods for draft operations.
// It implements the DraftStore interface.
type DraftRepo struct {
	db *sql.DB
}

// NewDraftRepo creates a new DraftRepo.
func NewDraftRepo(db *sql.DB) *DraftRepo {
	return &DraftRepo{db: db}
}

// Save inserts a new draft or replaces an existing one by ID.
func (r *DraftRepo) Save(ctx context.Context, draft *DraftRecord) error {
	if draft.Status == "" {
		draft.Status = "draft"
	}
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO drafts (id, kind, original_email_id, recipient, in_reply_to_sender, in_reply_to_subject, content, custom_instructions, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   content = excluded.content,
		   custom_instructions = excluded.custom_instructions,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		draft.ID, draft.Kind, draft.OriginalEmailID, draft.Recipient,
		draft.InReplyToSender, draft.InReplyToSubject, draft.Content,
		draft.CustomInstructions, draft.Status,
		draft.CreatedAt.Format(time.RFC3339), draft.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// GetByID gets a draft by ID. Returns nil and ErrNotFound if not found.
func (r *DraftRepo) GetByID(ctx context.Context, id string) (*DraftRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, kind, original_email_id, recipient, in_reply_to_sender, in_reply_to_subject, content, custom_instructions, status, created_at, updated_at
		 FROM drafts WHERE id = ?`, id)

	draft, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query draft: %w", err)
	}
	return draft, nil
}

// ListAll returns all drafts, newest first.
func (r *DraftRepo) ListAll(ctx context.Context) ([]*DraftRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, original_email_id, recipient, in_reply_to_sender, in_reply_to_subject, content, custom_instructions, status, created_at, updated_at
		 FROM drafts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query drafts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var drafts []*DraftRecord
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return drafts, nil
}

// Delete removes a draft by ID. Returns ErrNotFound if not found.
func (r *DraftRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM drafts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner abstracts over *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(s scanner) (*DraftRecord, error) {
	var draft DraftRecord
	var createdAt, updatedAt string

	err := s.Scan(
		&draft.ID, &draft.Kind, &draft.OriginalEmailID, &draft.Recipient,
		&draft.InReplyToSender, &draft.InReplyToSubject, &draft.Content,
		&draft.CustomInstructions, &draft.Status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	draft.CreatedAt, err = parseTimestamp(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	draft.UpdatedAt, err = parseTimestamp(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &draft, nil
}

// parseTimestamp handles both RFC3339 and SQLite's DATETIME default format.
func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
