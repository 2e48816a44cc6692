package account

import "time"

// ResetMode decides when the daily spin allotment refills.
type ResetMode string

const (
	// ResetCalendar refills when the UTC calendar date of the last spin differs from today.
	ResetCalendar ResetMode = "calendar"
	// ResetRolling refills once 24 hours have passed since the last spin.
	ResetRolling ResetMode = "rolling"
)

const rollingWindow = 24 * time.Hour

// SpinPolicy computes the spins an account has left.
type SpinPolicy struct {
	Daily int
	Mode  ResetMode
}

// Remaining returns the spins left at now, never above the daily allotment.
func (p SpinPolicy) Remaining(acc Account, now time.Time) int {
	if acc.LastSpinAt == nil || !p.sameWindow(*acc.LastSpinAt, now) {
		return p.Daily
	}
	switch {
	case acc.SpinsLeftToday < 0:
		return 0
	case acc.SpinsLeftToday > p.Daily:
		return p.Daily
	default:
		return acc.SpinsLeftToday
	}
}

func (p SpinPolicy) sameWindow(last, now time.Time) bool {
	if p.Mode == ResetRolling {
		return now.Sub(last) < rollingWindow
	}
	return DateKey(last) == DateKey(now)
}

// DateKey formats t as a UTC calendar date.
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
