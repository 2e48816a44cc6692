package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresJournal appends entries to the point_entries table.
type PostgresJournal struct {
	db *pgxpool.Pool
}

// NewPostgresJournal constructs a Postgres-backed journal.
func NewPostgresJournal(db *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{db: db}
}

// Record inserts the entry.
func (j *PostgresJournal) Record(ctx context.Context, entry Entry) (Entry, error) {
	entry, err := prepare(entry, time.Now())
	if err != nil {
		return Entry{}, err
	}
	const query = `
        INSERT INTO point_entries (id, account_id, kind, amount, balance_after, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := j.db.Exec(ctx, query, entry.ID, entry.AccountID, entry.Kind, entry.Amount, entry.BalanceAfter, entry.CreatedAt); err != nil {
		return Entry{}, fmt.Errorf("insert point entry: %w", err)
	}
	return entry, nil
}

// History returns the newest entries first.
func (j *PostgresJournal) History(ctx context.Context, accountID string, limit int) ([]Entry, error) {
	const query = `
        SELECT id, account_id, kind, amount, balance_after, created_at
        FROM point_entries
        WHERE account_id = $1
        ORDER BY created_at DESC
        LIMIT $2`
	rows, err := j.db.Query(ctx, query, accountID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query point entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Kind, &e.Amount, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
