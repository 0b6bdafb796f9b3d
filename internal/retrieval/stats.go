package retrieval

import "sort"

// topSenderCount caps the number of senders reported in Stats.
const topSenderCount = 5

// SenderCount pairs a sender with their email count.
type SenderCount struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}

// InboxStats summarizes the indexed collection.
type InboxStats struct {
	TotalEmails int            `json:"total_emails"`
	Unread      int            `json:"unread"`
	Starred     int            `json:"starred"`
	Important   int            `json:"important"`
	TopSenders  []SenderCount  `json:"top_senders"`
	Folders     map[string]int `json:"folders"`
}

// Stats computes aggregate statistics over the raw email collection.
// It is recomputed on every call; inbox sizes make caching unnecessary.
func (r *Retriever) Stats() InboxStats {
	emails := r.index.Emails()

	stats := InboxStats{
		TotalEmails: len(emails),
		Folders:     make(map[string]int),
	}

	senderCounts := make(map[string]int)
	senderOrder := make([]string, 0)

	for _, email := range emails {
		if !email.Read {
			stats.Unread++
		}
		if email.Starred {
			stats.Starred++
		}
		if email.Important {
			stats.Important++
		}

		sender := email.SenderName
		if sender == "" {
			sender = email.Sender
		}
		if sender == "" {
			sender = "Unknown"
		}
		if _, seen := senderCounts[sender]; !seen {
			senderOrder = append(senderOrder, sender)
		}
		senderCounts[sender]++

		stats.Folders[email.FolderOrDefault()]++
	}

	top := make([]SenderCount, 0, len(senderOrder))
	for _, sender := range senderOrder {
		top = append(top, SenderCount{Sender: sender, Count: senderCounts[sender]})
	}
	// Stable sort keeps first-seen order for tied counts.
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Count > top[j].Count
	})
	if len(top) > topSenderCount {
		top = top[:topSenderCount]
	}
	stats.TopSenders = top

	return stats
}
