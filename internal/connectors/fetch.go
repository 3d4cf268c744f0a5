package connectors

import (
	"chandlery/internal/storage"
)

// Fetcher pulls a batch from an inbox and records every message as an intake
// row. Counts are per cycle; duplicates still count as stored since the
// upsert decides what changes.
type Fetcher struct {
	inbox Inbox
	store *IntakeStore
}

type FetchStats struct {
	Fetched int
	Stored  int
}

func NewFetcher(db *storage.DB, rawMailDir string, inbox Inbox) *Fetcher {
	return &Fetcher{
		inbox: inbox,
		store: NewIntakeStore(db, rawMailDir),
	}
}

func (f *Fetcher) FetchAndStore(label string, max int) (FetchStats, error) {
	messages, err := f.inbox.FetchInbox(label, max)
	if err != nil {
		return FetchStats{}, err
	}

	stats := FetchStats{Fetched: len(messages)}
	for _, msg := range messages {
		if _, err := f.store.Save(msg); err != nil {
			return stats, err
		}
		stats.Stored++
	}
	return stats, nil
}
