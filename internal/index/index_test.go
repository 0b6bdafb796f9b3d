package index

import (
	"strings"
	"testing"

	"inboxpilot/internal/inbox"
)

func sampleEmails() []inbox.Email {
	return []inbox.Email{
		{
			ID:         "email_1",
			Sender:     "alice.johnson@techcorp.com",
			SenderName: "Alice Johnson",
			Subject:    "Project Update - Week 47",
			Body:       "The migration work is on track and due Friday.",
			Timestamp:  "2025-11-17T09:12:00",
			Read:       false,
			Starred:    true,
			Important:  true,
			Folder:     "inbox",
		},
		{
			ID:         "email_2",
			Sender:     "bob.martinez@company.com",
			SenderName: "Bob Martinez",
			Subject:    "Meeting Invitation",
			Body:       "Planning session next Tuesday at 10:00.",
			Timestamp:  "2025-11-17T11:45:00",
			Read:       true,
			Folder:     "archive",
		},
	}
}

func TestBuildPopulatesEntries(t *testing.T) {
	idx := New()
	if idx.Ready() {
		t.Fatal("new index should not be ready before Build")
	}

	idx.Build(sampleEmails())

	if !idx.Ready() {
		t.Fatal("index should be ready after Build")
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", idx.Len())
	}

	entry, ok := idx.Entry("email_1")
	if !ok {
		t.Fatal("expected entry for email_1")
	}
	if entry.Email.Subject != "Project Update - Week 47" {
		t.Fatalf("entry carries wrong email: %q", entry.Email.Subject)
	}
	if len(entry.Vector) == 0 {
		t.Fatal("expected non-empty term vector")
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	emails := sampleEmails()

	idx := New()
	idx.Build(emails)
	first, _ := idx.Entry("email_1")

	idx.Build(emails)
	second, _ := idx.Entry("email_1")

	if idx.Len() != 2 {
		t.Fatalf("re-build should not grow index, got %d entries", idx.Len())
	}
	if first.Text != second.Text {
		t.Fatalf("re-build changed search text:\n%q\nvs\n%q", first.Text, second.Text)
	}
	if len(first.Vector) != len(second.Vector) {
		t.Fatalf("re-build changed vector size: %d vs %d", len(first.Vector), len(second.Vector))
	}
	for term, freq := range first.Vector {
		if second.Vector[term] != freq {
			t.Fatalf("term %q frequency changed across rebuilds: %d vs %d", term, freq, second.Vector[term])
		}
	}
}

func TestBuildReplacesPreviousContents(t *testing.T) {
	idx := New()
	idx.Build(sampleEmails())

	idx.Build([]inbox.Email{{ID: "email_9", Subject: "Lone survivor", Body: "only one left"}})

	if idx.Len() != 1 {
		t.Fatalf("expected 1 entry after rebuild, got %d", idx.Len())
	}
	if _, ok := idx.Entry("email_1"); ok {
		t.Fatal("old entry should be gone after rebuild")
	}
}

func TestBuildDuplicateIDsOverwrite(t *testing.T) {
	idx := New()
	idx.Build([]inbox.Email{
		{ID: "dup", Subject: "first version"},
		{ID: "dup", Subject: "second version"},
	})

	if idx.Len() != 1 {
		t.Fatalf("duplicate IDs should collapse to one entry, got %d", idx.Len())
	}
	entry, _ := idx.Entry("dup")
	if entry.Email.Subject != "second version" {
		t.Fatalf("later duplicate should win, got %q", entry.Email.Subject)
	}
}

func TestSearchTextFieldsAndFlags(t *testing.T) {
	email := sampleEmails()[0]
	text := SearchText(email)

	for _, want := range []string{
		"from: alice johnson alice.johnson@techcorp.com",
		"subject: project update - week 47",
		"body: the migration work is on track and due friday.",
		"date: 2025-11-17t09:12:00",
		"starred important",
		"important priority",
		"unread new",
		"folder: inbox",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("search text missing %q:\n%s", want, text)
		}
	}
}

func TestSearchTextReadEmailOmitsUnreadKeywords(t *testing.T) {
	email := sampleEmails()[1]
	text := SearchText(email)

	if strings.Contains(text, "unread new") {
		t.Fatalf("read email should not carry unread keywords:\n%s", text)
	}
	if !strings.Contains(text, "folder: archive") {
		t.Fatalf("expected folder label in search text:\n%s", text)
	}
}

func TestSearchTextDefaultsFolder(t *testing.T) {
	text := SearchText(inbox.Email{ID: "x", Subject: "no folder set", Read: true})
	if !strings.Contains(text, "folder: inbox") {
		t.Fatalf("missing folder should default to inbox:\n%s", text)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Vector
	}{
		{
			name: "counts repeated terms",
			text: "project update project",
			want: Vector{"project": 2, "update": 1},
		},
		{
			name: "lowercases",
			text: "Project UPDATE",
			want: Vector{"project": 1, "update": 1},
		},
		{
			name: "drops short tokens",
			text: "go to the db",
			want: Vector{"the": 1},
		},
		{
			name: "splits on punctuation",
			text: "alice.johnson@techcorp.com",
			want: Vector{"alice": 1, "johnson": 1, "techcorp": 1, "com": 1},
		},
		{
			name: "empty input",
			text: "",
			want: Vector{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d terms, got %d: %v", len(tt.want), len(got), got)
			}
			for term, freq := range tt.want {
				if got[term] != freq {
					t.Errorf("term %q: expected %d, got %d", term, freq, got[term])
				}
			}
		})
	}
}

func TestWalkVisitsInsertionOrder(t *testing.T) {
	idx := New()
	idx.Build(sampleEmails())

	var ids []string
	idx.Walk(func(id string, _ Entry) {
		ids = append(ids, id)
	})

	if len(ids) != 2 || ids[0] != "email_1" || ids[1] != "email_2" {
		t.Fatalf("unexpected walk order: %v", ids)
	}
}
