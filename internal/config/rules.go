package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Debit modes applied when a withdrawal is confirmed.
const (
	DebitMinimum = "minimum"
	DebitFull    = "full"
)

// Destination patterns accepted by the withdrawal form.
const (
	DestinationPhone  = "phone"
	DestinationWallet = "wallet"
)

// Spin allotment reset modes.
const (
	SpinResetCalendar = "calendar"
	SpinResetRolling  = "rolling"
)

// Rules are the operator-tunable reward parameters.
type Rules struct {
	RewardPoints       int64         `yaml:"reward_points"`
	Cooldown           time.Duration `yaml:"cooldown"`
	DailySpins         int           `yaml:"daily_spins"`
	Prizes             []int64       `yaml:"prizes"`
	SpinSettle         time.Duration `yaml:"spin_settle"`
	SpinRequiresAd     bool          `yaml:"spin_requires_ad"`
	SpinReset          string        `yaml:"spin_reset"`
	MinWithdrawal      int64         `yaml:"min_withdrawal"`
	DebitMode          string        `yaml:"debit_mode"`
	DestinationPattern string        `yaml:"destination_pattern"`
}

// DefaultRules mirrors the values the mini-app shipped with.
func DefaultRules() Rules {
	return Rules{
		RewardPoints:       10,
		Cooldown:           10 * time.Second,
		DailySpins:         5,
		Prizes:             []int64{500, 100, 400, 200, 300},
		SpinRequiresAd:     true,
		SpinReset:          SpinResetCalendar,
		MinWithdrawal:      50_000,
		DebitMode:          DebitMinimum,
		DestinationPattern: DestinationPhone,
	}
}

// LoadRules reads a YAML rules file. Keys missing from the file keep their defaults.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	rules := DefaultRules()
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate rejects rule sets the controllers cannot run with.
func (r Rules) Validate() error {
	if r.RewardPoints <= 0 {
		return fmt.Errorf("reward_points must be positive")
	}
	if r.Cooldown < 0 || r.SpinSettle < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if r.DailySpins < 0 {
		return fmt.Errorf("daily_spins must not be negative")
	}
	if len(r.Prizes) == 0 {
		return fmt.Errorf("prizes must not be empty")
	}
	for _, p := range r.Prizes {
		if p <= 0 {
			return fmt.Errorf("prize %d must be positive", p)
		}
	}
	if r.MinWithdrawal <= 0 {
		return fmt.Errorf("min_withdrawal must be positive")
	}
	switch r.DebitMode {
	case DebitMinimum, DebitFull:
	default:
		return fmt.Errorf("invalid debit_mode %q", r.DebitMode)
	}
	switch r.DestinationPattern {
	case DestinationPhone, DestinationWallet:
	default:
		return fmt.Errorf("invalid destination_pattern %q", r.DestinationPattern)
	}
	switch r.SpinReset {
	case SpinResetCalendar, SpinResetRolling:
	default:
		return fmt.Errorf("invalid spin_reset %q", r.SpinReset)
	}
	return nil
}
