package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidEntry is returned when an entry is missing its account or kind.
var ErrInvalidEntry = errors.New("invalid journal entry")

// Entry kinds.
const (
	KindReward     = "reward"
	KindSpin       = "spin"
	KindWithdrawal = "withdrawal"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Entry is one committed balance change. Amount is negative for debits.
type Entry struct {
	ID           uuid.UUID `json:"id"`
	AccountID    string    `json:"account_id"`
	Kind         string    `json:"kind"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// Journal records committed point movements. It is an audit trail; balances
// live on the account document.
type Journal interface {
	Record(ctx context.Context, entry Entry) (Entry, error)
	History(ctx context.Context, accountID string, limit int) ([]Entry, error)
}

func prepare(entry Entry, now time.Time) (Entry, error) {
	if entry.AccountID == "" || entry.Kind == "" {
		return Entry{}, ErrInvalidEntry
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now.UTC()
	}
	return entry, nil
}

// clampLimit bounds history page sizes.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return limit
	}
}
