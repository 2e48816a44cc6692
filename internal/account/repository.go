package account

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists accounts.
type Repository interface {
	Get(ctx context.Context, id string) (Account, error)
	Create(ctx context.Context, acc Account) (Account, error)
	Merge(ctx context.Context, id string, patch Patch) (Account, error)
	Debit(ctx context.Context, id string, amount int64) (Account, error)
}

const accountColumns = `id, points, spins_left_today, last_spin_at, username, first_name, last_name, created_at, version`

// PostgresRepository stores accounts in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get fetches an account by identity.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return acc, err
}

// Create inserts the account unless one already exists. The creation
// timestamp is assigned by the database.
func (r *PostgresRepository) Create(ctx context.Context, acc Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (id, points, spins_left_today, last_spin_at, username, first_name, last_name)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO NOTHING
        RETURNING `+accountColumns,
		acc.ID, acc.Points, acc.SpinsLeftToday, acc.LastSpinAt, acc.Username, acc.FirstName, acc.LastName)
	created, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAlreadyExists
	}
	return created, err
}

// Merge applies a partial write and bumps the version.
func (r *PostgresRepository) Merge(ctx context.Context, id string, patch Patch) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE accounts SET
            points = COALESCE($2, points),
            spins_left_today = COALESCE($3, spins_left_today),
            last_spin_at = COALESCE($4, last_spin_at),
            version = version + 1
        WHERE id = $1 AND ($5::bigint = 0 OR version = $5)
        RETURNING `+accountColumns,
		id, patch.Points, patch.SpinsLeftToday, patch.LastSpinAt, patch.ExpectedVersion)
	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Account{}, getErr
		}
		return Account{}, ErrVersionConflict
	}
	return acc, err
}

// Debit subtracts amount only while the stored balance covers it.
func (r *PostgresRepository) Debit(ctx context.Context, id string, amount int64) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE accounts SET points = points - $2, version = version + 1
        WHERE id = $1 AND points >= $2
        RETURNING `+accountColumns, id, amount)
	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Account{}, getErr
		}
		return Account{}, ErrInsufficientPoints
	}
	return acc, err
}

func scanAccount(row pgx.Row) (Account, error) {
	var acc Account
	if err := row.Scan(&acc.ID, &acc.Points, &acc.SpinsLeftToday, &acc.LastSpinAt,
		&acc.Username, &acc.FirstName, &acc.LastName, &acc.CreatedAt, &acc.Version); err != nil {
		return Account{}, err
	}
	acc.CreatedAt = acc.CreatedAt.UTC()
	if acc.LastSpinAt != nil {
		t := acc.LastSpinAt.UTC()
		acc.LastSpinAt = &t
	}
	return acc, nil
}
