package session

import (
	"context"
	"fmt"
	"time"

	"github.com/flexyearn/flexyearn/internal/account"
	"github.com/flexyearn/flexyearn/internal/ads"
	"github.com/flexyearn/flexyearn/internal/ledger"
)

// SpinResult is the outcome of a committed spin.
type SpinResult struct {
	Prize      int64
	PrizeIndex int
	Points     int64
	SpinsLeft  int
}

// Spin draws a prize from the wheel. An exhausted allotment is rejected
// before the ad or the store is contacted.
func (s *Session) Spin(ctx context.Context, player ads.Player) (SpinResult, error) {
	if err := s.touch(); err != nil {
		return SpinResult{}, err
	}

	s.mu.Lock()
	if s.spinning {
		s.mu.Unlock()
		return SpinResult{}, ErrBusy
	}
	s.refreshSpinsLocked()
	if s.snap.SpinsLeft <= 0 {
		s.mu.Unlock()
		s.logger.Info("spin rejected", "op", "spin", "error", ErrNoSpinsLeft)
		return SpinResult{}, ErrNoSpinsLeft
	}
	s.spinning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.spinning = false
		s.mu.Unlock()
	}()

	if s.deps.Settings.SpinRequiresAd {
		if err := playAd(ctx, player, s.user.ID); err != nil {
			s.logger.Warn("spin ad not completed", "op", "spin", "error", err)
			return SpinResult{}, err
		}
	}

	prizes := s.deps.Settings.Prizes
	if len(prizes) == 0 {
		return SpinResult{}, fmt.Errorf("prize table is empty")
	}
	idx := s.deps.Rand(len(prizes))
	prize := prizes[idx]

	if err := settle(ctx, s.deps.Settings.SpinSettle); err != nil {
		s.logger.Warn("spin abandoned before commit", "op", "spin", "error", err)
		return SpinResult{}, err
	}

	s.write.Lock()
	defer s.write.Unlock()

	m := s.begin()
	now := s.deps.Now().UTC()
	exhausted := false
	next := m.apply(func(snap *Snapshot) {
		snap.SpinsLeft = s.policy().Remaining(snap.account(), now)
		if snap.SpinsLeft <= 0 {
			exhausted = true
			return
		}
		snap.Points += prize
		snap.SpinsLeft--
		snap.LastSpinAt = &now
	})
	if exhausted {
		m.rollback()
		return SpinResult{}, ErrNoSpinsLeft
	}

	acc, err := s.persist(ctx, m, account.Patch{
		Points:          &next.Points,
		SpinsLeftToday:  &next.SpinsLeft,
		LastSpinAt:      next.LastSpinAt,
		ExpectedVersion: next.Version,
	}, ledger.KindSpin)
	if err != nil {
		return SpinResult{}, err
	}

	s.record(ctx, ledger.KindSpin, prize, acc.Points)
	s.logger.Info("spin committed", "op", "spin", "prize", prize, "points", acc.Points, "spins_left", acc.SpinsLeftToday)
	return SpinResult{Prize: prize, PrizeIndex: idx, Points: acc.Points, SpinsLeft: acc.SpinsLeftToday}, nil
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
