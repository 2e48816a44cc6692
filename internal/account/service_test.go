package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flexyearn/flexyearn/internal/identity"
)

type countingRepo struct {
	Repository
	gets, creates int
	getErr        error
}

func (r *countingRepo) Get(ctx context.Context, id string) (Account, error) {
	r.gets++
	if r.getErr != nil {
		return Account{}, r.getErr
	}
	return r.Repository.Get(ctx, id)
}

func (r *countingRepo) Create(ctx context.Context, acc Account) (Account, error) {
	r.creates++
	return r.Repository.Create(ctx, acc)
}

func newTestService(repo Repository, now time.Time) *Service {
	svc := NewService(repo, SpinPolicy{Daily: 5, Mode: ResetCalendar})
	svc.now = func() time.Time { return now }
	return svc
}

func TestBootstrapCreatesAccount(t *testing.T) {
	repo := &countingRepo{Repository: NewMemoryRepository()}
	svc := newTestService(repo, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))

	acc, created, err := svc.Bootstrap(context.Background(), identity.User{ID: "u1", Username: "u", FirstName: "U"})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !created {
		t.Fatalf("expected account to be created")
	}
	if acc.Points != 0 || acc.SpinsLeftToday != 5 {
		t.Fatalf("unexpected new account: %+v", acc)
	}
	if acc.Username != "u" || acc.FirstName != "U" {
		t.Fatalf("identity metadata not stored: %+v", acc)
	}
	if repo.gets != 1 || repo.creates != 1 {
		t.Fatalf("expected one read and one write, got %d reads %d writes", repo.gets, repo.creates)
	}
}

func TestBootstrapTwiceIsIdempotent(t *testing.T) {
	repo := &countingRepo{Repository: NewMemoryRepository()}
	svc := newTestService(repo, time.Now())
	ctx := context.Background()
	user := identity.User{ID: "u1"}

	first, _, err := svc.Bootstrap(ctx, user)
	if err != nil {
		t.Fatalf("first bootstrap: %v", err)
	}
	second, created, err := svc.Bootstrap(ctx, user)
	if err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	if created {
		t.Fatalf("second bootstrap must not create")
	}
	if first.Points != second.Points || repo.creates != 1 {
		t.Fatalf("expected same balance and a single create, got %d/%d creates=%d", first.Points, second.Points, repo.creates)
	}
}

func TestBootstrapRecomputesSpins(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		lastSpin time.Time
		stored   int
		mode     ResetMode
		want     int
	}{
		{"same day keeps stored", now.Add(-time.Hour), 2, ResetCalendar, 2},
		{"previous day resets", now.Add(-11 * time.Hour), 0, ResetCalendar, 5},
		{"rolling within window keeps", now.Add(-11 * time.Hour), 1, ResetRolling, 1},
		{"rolling after window resets", now.Add(-25 * time.Hour), 0, ResetRolling, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := NewMemoryRepository()
			last := tc.lastSpin
			if _, err := repo.Create(ctx, Account{ID: "u1", Points: 70}); err != nil {
				t.Fatalf("seed: %v", err)
			}
			stored := tc.stored
			if _, err := repo.Merge(ctx, "u1", Patch{SpinsLeftToday: &stored, LastSpinAt: &last}); err != nil {
				t.Fatalf("seed merge: %v", err)
			}
			svc := NewService(repo, SpinPolicy{Daily: 5, Mode: tc.mode})
			svc.now = func() time.Time { return now }

			acc, _, err := svc.Bootstrap(ctx, identity.User{ID: "u1"})
			if err != nil {
				t.Fatalf("bootstrap: %v", err)
			}
			if acc.Points != 70 {
				t.Fatalf("expected points 70, got %d", acc.Points)
			}
			if acc.SpinsLeftToday != tc.want {
				t.Fatalf("expected %d spins, got %d", tc.want, acc.SpinsLeftToday)
			}
		})
	}
}

func TestBootstrapStoreFailure(t *testing.T) {
	repo := &countingRepo{Repository: NewMemoryRepository(), getErr: errors.New("connection refused")}
	svc := newTestService(repo, time.Now())

	if _, _, err := svc.Bootstrap(context.Background(), identity.User{ID: "u1"}); err == nil {
		t.Fatalf("expected error")
	}
	if repo.creates != 0 {
		t.Fatalf("must not create after a failed read")
	}
}

func TestMemoryRepositoryConditionalWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	acc, err := repo.Create(ctx, Account{ID: "u1", Points: 100})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, Account{ID: "u1"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	points := int64(110)
	updated, err := repo.Merge(ctx, "u1", Patch{Points: &points, ExpectedVersion: acc.Version})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := repo.Merge(ctx, "u1", Patch{Points: &points, ExpectedVersion: acc.Version}); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	debited, err := repo.Debit(ctx, "u1", 60)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if debited.Points != 50 || debited.Version != updated.Version+1 {
		t.Fatalf("unexpected debit result: %+v", debited)
	}
	if _, err := repo.Debit(ctx, "u1", 51); !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected insufficient points, got %v", err)
	}
	if _, err := repo.Debit(ctx, "nobody", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWithClockDrivesSpinRecompute(t *testing.T) {
	repo := NewMemoryRepository()
	lastSpin := time.Date(2030, 3, 10, 10, 0, 0, 0, time.UTC)
	if _, err := repo.Create(context.Background(), Account{ID: "u1", SpinsLeftToday: 0, LastSpinAt: &lastSpin}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	base := NewService(repo, SpinPolicy{Daily: 5, Mode: ResetCalendar})
	sameDay := base.WithClock(func() time.Time { return lastSpin.Add(time.Hour) })

	acc, err := sameDay.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if acc.SpinsLeftToday != 0 {
		t.Fatalf("expected no spins on the same day, got %d", acc.SpinsLeftToday)
	}

	nextDay := base.WithClock(func() time.Time { return lastSpin.Add(24 * time.Hour) })
	acc, err = nextDay.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if acc.SpinsLeftToday != 5 {
		t.Fatalf("expected allotment reset on the next day, got %d", acc.SpinsLeftToday)
	}
	if sameDay.Repository() != base.Repository() {
		t.Fatalf("expected clock copies to share the repository")
	}
}
