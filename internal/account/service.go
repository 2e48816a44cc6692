package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flexyearn/flexyearn/internal/identity"
)

// Service loads and creates accounts for resolved identities.
type Service struct {
	repo   Repository
	policy SpinPolicy
	now    func() time.Time
}

// NewService builds an account service.
func NewService(repo Repository, policy SpinPolicy) *Service {
	return &Service{repo: repo, policy: policy, now: time.Now}
}

// WithClock returns a copy of the service that reads the time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	c := *s
	c.now = now
	return &c
}

// Repository exposes the underlying store to the controllers.
func (s *Service) Repository() Repository { return s.repo }

// Policy returns the spin reset policy in force.
func (s *Service) Policy() SpinPolicy { return s.policy }

// Bootstrap makes sure an account exists for user and returns it with the
// spin allotment recomputed for the current day. The bool reports whether
// the account was created by this call.
func (s *Service) Bootstrap(ctx context.Context, user identity.User) (Account, bool, error) {
	if user.ID == "" {
		return Account{}, false, fmt.Errorf("bootstrap: empty identity")
	}

	acc, err := s.repo.Get(ctx, user.ID)
	if err == nil {
		acc.SpinsLeftToday = s.policy.Remaining(acc, s.now())
		return acc, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Account{}, false, fmt.Errorf("load account: %w", err)
	}

	created, err := s.repo.Create(ctx, Account{
		ID:             user.ID,
		Points:         0,
		SpinsLeftToday: s.policy.Daily,
		Username:       user.Username,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
	})
	if errors.Is(err, ErrAlreadyExists) {
		// Lost a create race; the winner's record is authoritative.
		acc, err := s.repo.Get(ctx, user.ID)
		if err != nil {
			return Account{}, false, fmt.Errorf("reload account: %w", err)
		}
		acc.SpinsLeftToday = s.policy.Remaining(acc, s.now())
		return acc, false, nil
	}
	if err != nil {
		return Account{}, false, fmt.Errorf("create account: %w", err)
	}
	return created, true, nil
}

// Load returns the authoritative stored account with the spin allotment recomputed.
func (s *Service) Load(ctx context.Context, id string) (Account, error) {
	acc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	acc.SpinsLeftToday = s.policy.Remaining(acc, s.now())
	return acc, nil
}
