package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func sampleDraft(id string) *DraftRecord {
	return &DraftRecord{
		ID:               id,
		Kind:             "reply",
		OriginalEmailID:  "email_1",
		Recipient:        "alice.johnson@techcorp.com",
		InReplyToSender:  "alice.johnson@techcorp.com",
		InReplyToSubject: "Project Update",
		Content:          `{"subject": "Re: Project Update", "body": "On it."}`,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestSaveAndGetByID(t *testing.T) {
	repo := NewDraftRepo(testDB(t))
	ctx := context.Background()

	draft := sampleDraft("draft-1")
	if err := repo.Save(ctx, draft); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if draft.Status != "draft" {
		t.Errorf("Save should default status to draft, got %q", draft.Status)
	}
	if draft.CreatedAt.IsZero() || draft.UpdatedAt.IsZero() {
		t.Error("Save should stamp timestamps")
	}

	got, err := repo.GetByID(ctx, "draft-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Kind != "reply" || got.Recipient != "alice.johnson@techcorp.com" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Content != draft.Content {
		t.Errorf("content mismatch: %q vs %q", got.Content, draft.Content)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at round-tripped")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewDraftRepo(testDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveUpsertsExistingDraft(t *testing.T) {
	repo := NewDraftRepo(testDB(t))
	ctx := context.Background()

	draft := sampleDraft("draft-1")
	if err := repo.Save(ctx, draft); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	updated := sampleDraft("draft-1")
	updated.Content = `{"subject": "Re: Project Update", "body": "Revised."}`
	updated.CustomInstructions = "shorter"
	if err := repo.Save(ctx, updated); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "draft-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Content != updated.Content || got.CustomInstructions != "shorter" {
		t.Fatalf("upsert did not apply: %+v", got)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("upsert should not duplicate rows, got %d", len(all))
	}
}

func TestListAllNewestFirst(t *testing.T) {
	repo := NewDraftRepo(testDB(t))
	ctx := context.Background()

	older := sampleDraft("draft-old")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	if err := repo.Save(ctx, older); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	newer := sampleDraft("draft-new")
	if err := repo.Save(ctx, newer); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(all))
	}
	if all[0].ID != "draft-new" || all[1].ID != "draft-old" {
		t.Fatalf("expected newest first, got %s, %s", all[0].ID, all[1].ID)
	}
}

func TestDelete(t *testing.T) {
	repo := NewDraftRepo(testDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, sampleDraft("draft-1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := repo.Delete(ctx, "draft-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.GetByID(ctx, "draft-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected draft gone, got %v", err)
	}
	if err := repo.Delete(ctx, "draft-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{name: "rfc3339", value: "2025-11-17T09:12:00Z", ok: true},
		{name: "sqlite datetime", value: "2025-11-17 09:12:00", ok: true},
		{name: "garbage", value: "yesterday", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimestamp(tt.value)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("expected error, got %v", got)
			}
		})
	}
}
