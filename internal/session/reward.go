package session

import (
	"context"
	"fmt"
	"time"

	"github.com/flexyearn/flexyearn/internal/account"
	"github.com/flexyearn/flexyearn/internal/ads"
	"github.com/flexyearn/flexyearn/internal/ledger"
)

// RewardResult is the outcome of a successful claim.
type RewardResult struct {
	Awarded  int64
	Points   int64
	Cooldown time.Duration
}

// ClaimReward plays a rewarded ad and credits the fixed reward. The
// cooldown starts once the ad completes and keeps running even if the
// balance write fails.
func (s *Session) ClaimReward(ctx context.Context, player ads.Player) (RewardResult, error) {
	if err := s.touch(); err != nil {
		return RewardResult{}, err
	}

	s.mu.Lock()
	if s.cooldown.Active() {
		s.mu.Unlock()
		return RewardResult{}, ErrCoolingDown
	}
	switch s.rewardState {
	case RewardAdRequested, RewardAdPlaying, RewardRewarding:
		s.mu.Unlock()
		return RewardResult{}, ErrBusy
	}
	s.rewardState = RewardAdRequested
	s.mu.Unlock()

	s.setRewardState(RewardAdPlaying)
	if err := playAd(ctx, player, s.user.ID); err != nil {
		s.setRewardState(RewardIdle)
		s.logger.Warn("rewarded ad not completed", "op", "reward", "error", err)
		return RewardResult{}, err
	}

	s.setRewardState(RewardRewarding)
	reward := s.deps.Settings.RewardPoints

	s.write.Lock()
	m := s.begin()
	next := m.apply(func(snap *Snapshot) { snap.Points += reward })
	s.cooldown.Start(s.deps.Settings.Cooldown)
	acc, err := s.persist(ctx, m, account.Patch{Points: &next.Points, ExpectedVersion: next.Version}, ledger.KindReward)
	s.write.Unlock()

	s.setRewardState(RewardCoolingDown)
	if err != nil {
		return RewardResult{}, err
	}

	s.record(ctx, ledger.KindReward, reward, acc.Points)
	s.logger.Info("reward credited", "op", "reward", "awarded", reward, "points", acc.Points)
	return RewardResult{Awarded: reward, Points: acc.Points, Cooldown: s.cooldown.Remaining()}, nil
}

// CooldownRemaining returns the time left before the next claim.
func (s *Session) CooldownRemaining() time.Duration {
	return s.cooldown.Remaining()
}

func (s *Session) setRewardState(state RewardState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewardState = state
}

func playAd(ctx context.Context, player ads.Player, accountID string) error {
	if player == nil {
		return ads.ErrUnavailable
	}
	if err := player.Play(ctx, accountID); err != nil {
		return fmt.Errorf("play rewarded ad: %w", err)
	}
	return nil
}
