package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/flexyearn/flexyearn/internal/account"
	"github.com/flexyearn/flexyearn/internal/ads"
	"github.com/flexyearn/flexyearn/internal/config"
	"github.com/flexyearn/flexyearn/internal/events"
	"github.com/flexyearn/flexyearn/internal/identity"
	"github.com/flexyearn/flexyearn/internal/ledger"
	"github.com/flexyearn/flexyearn/internal/notification"
	"github.com/flexyearn/flexyearn/internal/payout"
)

type flakyRepo struct {
	account.Repository

	mu       sync.Mutex
	merges   int
	debits   int
	mergeErr error
	debitErr error
}

func (r *flakyRepo) Merge(ctx context.Context, id string, patch account.Patch) (account.Account, error) {
	r.mu.Lock()
	r.merges++
	err := r.mergeErr
	r.mu.Unlock()
	if err != nil {
		return account.Account{}, err
	}
	return r.Repository.Merge(ctx, id, patch)
}

func (r *flakyRepo) Debit(ctx context.Context, id string, amount int64) (account.Account, error) {
	r.mu.Lock()
	r.debits++
	err := r.debitErr
	r.mu.Unlock()
	if err != nil {
		return account.Account{}, err
	}
	return r.Repository.Debit(ctx, id, amount)
}

func (r *flakyRepo) failMerges(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mergeErr = err
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification.Message
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type countingPlayer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *countingPlayer) Play(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

type fixture struct {
	repo     *flakyRepo
	manager  *Manager
	notifier *fakeNotifier
	journal  ledger.Journal
	events   *events.Recorder
}

func newFixture(t *testing.T, mutate func(r *config.Rules, d *Deps)) *fixture {
	t.Helper()
	rules := config.DefaultRules()
	f := &fixture{
		repo:     &flakyRepo{Repository: account.NewMemoryRepository()},
		notifier: &fakeNotifier{},
		journal:  ledger.NewInMemory(),
		events:   &events.Recorder{},
	}
	rate, err := payout.NewRate(50_000, "100", "DZD")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	deps := Deps{
		Journal:  f.journal,
		Notifier: f.notifier,
		Events:   f.events,
		Rate:     rate,
	}
	if mutate != nil {
		mutate(&rules, &deps)
	}
	deps.Accounts = account.NewService(f.repo, PolicyFromRules(rules))
	deps.Settings = SettingsFromRules(rules, time.Minute)
	f.manager = NewManager(deps)
	t.Cleanup(f.manager.Close)
	return f
}

// seed stores an account before any session exists for it.
func (f *fixture) seed(t *testing.T, acc account.Account) {
	t.Helper()
	if _, err := f.repo.Repository.Create(context.Background(), acc); err != nil {
		t.Fatalf("seed %s: %v", acc.ID, err)
	}
}

func (f *fixture) acquire(t *testing.T, id string) *Session {
	t.Helper()
	s, err := f.manager.Acquire(context.Background(), identity.User{ID: id, Username: id, FirstName: "Test"})
	if err != nil {
		t.Fatalf("acquire %s: %v", id, err)
	}
	return s
}

func (f *fixture) stored(t *testing.T, id string) account.Account {
	t.Helper()
	acc, err := f.repo.Repository.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return acc
}

const watched = ads.Reported(ads.OutcomeCompleted)
