package account

import (
	"errors"
	"time"
)

var (
	// ErrNotFound means no account exists for the identity.
	ErrNotFound = errors.New("account not found")
	// ErrAlreadyExists is returned by Create when another writer created the account first.
	ErrAlreadyExists = errors.New("account already exists")
	// ErrVersionConflict means a conditional write lost against a concurrent writer.
	ErrVersionConflict = errors.New("account was modified concurrently")
	// ErrInsufficientPoints means a debit would take the balance below zero.
	ErrInsufficientPoints = errors.New("insufficient points")
)

// Account is the persisted balance record of one identity.
type Account struct {
	ID             string
	Points         int64
	SpinsLeftToday int
	LastSpinAt     *time.Time
	Username       string
	FirstName      string
	LastName       string
	CreatedAt      time.Time
	Version        int64
}

// Patch is a partial write. Nil fields are left untouched. A non-zero
// ExpectedVersion turns the write into a compare-and-set.
type Patch struct {
	Points          *int64
	SpinsLeftToday  *int
	LastSpinAt      *time.Time
	ExpectedVersion int64
}
