package ledger

import (
	"context"
	"sync"
	"time"
)

type inMemoryJournal struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewInMemory creates a concurrency-safe in-memory journal for development and tests.
func NewInMemory() Journal {
	return &inMemoryJournal{entries: make(map[string][]Entry)}
}

func (j *inMemoryJournal) Record(_ context.Context, entry Entry) (Entry, error) {
	entry, err := prepare(entry, time.Now())
	if err != nil {
		return Entry{}, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[entry.AccountID] = append(j.entries[entry.AccountID], entry)
	return entry, nil
}

// History returns the newest entries first.
func (j *inMemoryJournal) History(_ context.Context, accountID string, limit int) ([]Entry, error) {
	limit = clampLimit(limit)

	j.mu.RLock()
	defer j.mu.RUnlock()
	all := j.entries[accountID]
	out := make([]Entry, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
