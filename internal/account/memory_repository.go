package account

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Account
}

// NewMemoryRepository constructs an in-memory repository for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Account)}
}

func (r *memoryRepository) Get(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.storage[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return clone(acc), nil
}

func (r *memoryRepository) Create(_ context.Context, acc Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[acc.ID]; exists {
		return Account{}, ErrAlreadyExists
	}
	acc.CreatedAt = time.Now().UTC()
	acc.Version = 1
	r.storage[acc.ID] = clone(acc)
	return clone(acc), nil
}

func (r *memoryRepository) Merge(_ context.Context, id string, patch Patch) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.storage[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if patch.ExpectedVersion != 0 && patch.ExpectedVersion != acc.Version {
		return Account{}, ErrVersionConflict
	}
	if patch.Points != nil {
		acc.Points = *patch.Points
	}
	if patch.SpinsLeftToday != nil {
		acc.SpinsLeftToday = *patch.SpinsLeftToday
	}
	if patch.LastSpinAt != nil {
		t := *patch.LastSpinAt
		acc.LastSpinAt = &t
	}
	acc.Version++
	r.storage[id] = acc
	return clone(acc), nil
}

func (r *memoryRepository) Debit(_ context.Context, id string, amount int64) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.storage[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if acc.Points < amount {
		return Account{}, ErrInsufficientPoints
	}
	acc.Points -= amount
	acc.Version++
	r.storage[id] = acc
	return clone(acc), nil
}

func clone(acc Account) Account {
	if acc.LastSpinAt != nil {
		t := *acc.LastSpinAt
		acc.LastSpinAt = &t
	}
	return acc
}
