package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flexyearn/flexyearn/internal/account"
	"github.com/flexyearn/flexyearn/internal/identity"
	"github.com/flexyearn/flexyearn/internal/ledger"
)

// RewardState is the position of the reward controller in its cycle.
type RewardState int

const (
	RewardIdle RewardState = iota
	RewardAdRequested
	RewardAdPlaying
	RewardRewarding
	RewardCoolingDown
)

func (s RewardState) String() string {
	switch s {
	case RewardAdRequested:
		return "ad_requested"
	case RewardAdPlaying:
		return "ad_playing"
	case RewardRewarding:
		return "rewarding"
	case RewardCoolingDown:
		return "cooling_down"
	default:
		return "idle"
	}
}

// Snapshot is the in-memory copy of the account a session works against.
type Snapshot struct {
	AccountID  string
	Points     int64
	SpinsLeft  int
	LastSpinAt *time.Time
	Version    int64
}

func (s Snapshot) clone() Snapshot {
	if s.LastSpinAt != nil {
		t := *s.LastSpinAt
		s.LastSpinAt = &t
	}
	return s
}

func (s Snapshot) account() account.Account {
	return account.Account{ID: s.AccountID, Points: s.Points, SpinsLeftToday: s.SpinsLeft, LastSpinAt: s.LastSpinAt, Version: s.Version}
}

// View is a read-only picture of a session for rendering.
type View struct {
	User          identity.User
	Points        int64
	SpinsLeft     int
	DailySpins    int
	LastSpinAt    *time.Time
	RewardState   RewardState
	Cooldown      time.Duration
	Spinning      bool
	Withdrawing   bool
	MinWithdrawal int64
}

// Session owns the balance snapshot and controller state of one identity.
// Balance mutations are serialized through write; mu guards the fields.
type Session struct {
	deps     *Deps
	user     identity.User
	logger   *slog.Logger
	cooldown *Cooldown

	write sync.Mutex

	mu          sync.Mutex
	snap        Snapshot
	rewardState RewardState
	spinning    bool
	withdrawing bool
	lastSeen    time.Time
	closed      bool
}

func newSession(deps *Deps, user identity.User, acc account.Account) *Session {
	s := &Session{
		deps:     deps,
		user:     user,
		logger:   deps.Logger.With("account_id", user.ID),
		cooldown: newCooldown(deps.Settings.CooldownTick),
		lastSeen: deps.Now(),
	}
	s.adopt(acc)
	return s
}

// ID returns the identity the session belongs to.
func (s *Session) ID() string { return s.user.ID }

// User returns the resolved identity.
func (s *Session) User() identity.User { return s.user }

// View returns the current state with the spin allotment recomputed.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshSpinsLocked()
	state := s.rewardState
	remaining := s.cooldown.Remaining()
	if state == RewardCoolingDown && remaining == 0 {
		state = RewardIdle
	}
	snap := s.snap.clone()
	return View{
		User:          s.user,
		Points:        snap.Points,
		SpinsLeft:     snap.SpinsLeft,
		DailySpins:    s.policy().Daily,
		LastSpinAt:    snap.LastSpinAt,
		RewardState:   state,
		Cooldown:      remaining,
		Spinning:      s.spinning,
		Withdrawing:   s.withdrawing,
		MinWithdrawal: s.deps.Settings.MinWithdrawal,
	}
}

// Snapshot returns a copy of the balance snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.clone()
}

// Reload replaces the snapshot with the stored record. Controller state,
// including a running cooldown, is kept.
func (s *Session) Reload(ctx context.Context) error {
	s.write.Lock()
	defer s.write.Unlock()
	acc, err := s.deps.Accounts.Load(ctx, s.user.ID)
	if err != nil {
		s.logger.Error("reload account failed", "op", "reload", "error", err)
		return fmt.Errorf("%w: %w", ErrBootstrap, err)
	}
	s.adopt(acc)
	return nil
}

// Close stops the session's timers. Further actions return ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cooldown.Close()
}

func (s *Session) adopt(acc account.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{
		AccountID:  acc.ID,
		Points:     acc.Points,
		SpinsLeft:  acc.SpinsLeftToday,
		LastSpinAt: acc.LastSpinAt,
		Version:    acc.Version,
	}.clone()
	s.refreshSpinsLocked()
}

func (s *Session) refreshSpinsLocked() {
	s.snap.SpinsLeft = s.policy().Remaining(s.snap.account(), s.deps.Now())
}

func (s *Session) policy() account.SpinPolicy {
	return s.deps.Accounts.Policy()
}

// touch marks activity and reports ErrClosed for torn-down sessions.
func (s *Session) touch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.lastSeen = s.deps.Now()
	return nil
}

// idle reports whether the session can be evicted at now.
func (s *Session) idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spinning || s.withdrawing {
		return false
	}
	switch s.rewardState {
	case RewardAdRequested, RewardAdPlaying, RewardRewarding:
		return false
	}
	if s.cooldown.Active() {
		return false
	}
	return now.Sub(s.lastSeen) >= ttl
}

// persist writes patch conditionally on the snapshot version. On a version
// conflict the snapshot is refreshed from the store after rollback so a
// retry starts from the authoritative balance.
func (s *Session) persist(ctx context.Context, m *mutation, patch account.Patch, op string) (account.Account, error) {
	acc, err := s.deps.Accounts.Repository().Merge(ctx, s.user.ID, patch)
	if err == nil {
		m.commit(acc)
		return acc, nil
	}

	m.rollback()
	s.logger.Error("persist balance failed; local update reverted", "op", op, "error", err)
	if errors.Is(err, account.ErrVersionConflict) {
		if fresh, loadErr := s.deps.Accounts.Load(ctx, s.user.ID); loadErr == nil {
			s.adopt(fresh)
		} else {
			s.logger.Warn("refresh after conflict failed", "op", op, "error", loadErr)
		}
	}
	return account.Account{}, fmt.Errorf("%w: %w", ErrPersist, err)
}

// record appends a journal entry. Journal failures are logged only; the
// balance write has already committed.
func (s *Session) record(ctx context.Context, kind string, amount, balance int64) {
	_, err := s.deps.Journal.Record(ctx, ledger.Entry{
		AccountID:    s.user.ID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balance,
	})
	if err != nil {
		s.logger.Warn("journal record failed", "op", kind, "error", err)
	}
}
