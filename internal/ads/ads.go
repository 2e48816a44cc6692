package ads

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnavailable means the ad capability is not loaded yet.
	ErrUnavailable = errors.New("ad system is not available")
	// ErrNotCompleted means the ad failed to play or was skipped.
	ErrNotCompleted = errors.New("ad was not watched to completion")
)

// Player plays one rewarded ad for an account and reports whether it was
// watched to completion.
type Player interface {
	Play(ctx context.Context, accountID string) error
}

// Outcomes reported by the web view after the ad SDK promise settles.
const (
	OutcomeCompleted   = "completed"
	OutcomeFailed      = "failed"
	OutcomeUnavailable = "unavailable"
)

// Reported is a client-attested ad outcome.
type Reported string

// Play maps the reported outcome onto the ad errors.
func (r Reported) Play(_ context.Context, _ string) error {
	switch strings.ToLower(strings.TrimSpace(string(r))) {
	case OutcomeCompleted:
		return nil
	case OutcomeUnavailable, "":
		return ErrUnavailable
	case OutcomeFailed:
		return ErrNotCompleted
	default:
		return fmt.Errorf("%w: unknown outcome %q", ErrNotCompleted, string(r))
	}
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context, accountID string) error

// Play calls f.
func (f PlayerFunc) Play(ctx context.Context, accountID string) error {
	return f(ctx, accountID)
}
