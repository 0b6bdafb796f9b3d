package agent

import (
	"fmt"
	"strings"

	"inboxpilot/internal/inbox"
	"inboxpilot/internal/retrieval"
)

// buildContext assembles the bounded textual context handed to the model:
// a statistics header, an optional focused-email block, and the ranked
// retrieval results with truncated previews.
func buildContext(stats retrieval.InboxStats, focused *inbox.Email, results []retrieval.Scored) string {
	var b strings.Builder

	b.WriteString("Inbox Summary:\n")
	fmt.Fprintf(&b, "  Total Emails: %d\n", stats.TotalEmails)
	fmt.Fprintf(&b, "  Unread: %d\n", stats.Unread)
	fmt.Fprintf(&b, "  Starred: %d\n", stats.Starred)
	fmt.Fprintf(&b, "  Important: %d\n", stats.Important)

	if focused != nil {
		b.WriteString("\nCurrently Focused Email:\n")
		fmt.Fprintf(&b, "  From: %s <%s>\n", focused.SenderName, focused.Sender)
		fmt.Fprintf(&b, "  Subject: %s\n", focused.Subject)
		fmt.Fprintf(&b, "  Date: %s\n", focused.Timestamp)
		fmt.Fprintf(&b, "  Body: %s\n", truncate(focused.Body, focusedBodyLimit))
	}

	if len(results) > 0 {
		fmt.Fprintf(&b, "\nRelevant Emails (%d):\n", len(results))
		for i, r := range results {
			fmt.Fprintf(&b, "  %d. [score %.2f] id=%s from=%s subject=%q date=%s%s\n",
				i+1, r.Score, r.EmailID, r.Email.Sender, r.Email.Subject, r.Email.Timestamp, statusFlags(r.Email))
			fmt.Fprintf(&b, "     preview: %s\n", truncate(r.Email.Body, previewLimit))
		}
	}

	return b.String()
}

// statusFlags renders an email's flags as a compact suffix.
func statusFlags(e inbox.Email) string {
	var flags []string
	if !e.Read {
		flags = append(flags, "unread")
	}
	if e.Starred {
		flags = append(flags, "starred")
	}
	if e.Important {
		flags = append(flags, "important")
	}
	if len(flags) == 0 {
		return ""
	}
	return " flags=" + strings.Join(flags, ",")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
