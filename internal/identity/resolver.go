package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrOutsideHost is returned when no host identity is available and the
// development fallback is disabled. Callers treat it as fatal.
var ErrOutsideHost = errors.New("this app must be opened from inside Telegram")

// ResolverConfig controls how identities are resolved.
type ResolverConfig struct {
	BotToken    string
	Verify      bool
	MaxAge      time.Duration
	DevFallback bool
}

// Resolver turns the raw initData handed over by the web view into a User.
type Resolver struct {
	cfg ResolverConfig
	now func() time.Time
}

// NewResolver builds an identity resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	return &Resolver{cfg: cfg, now: time.Now}
}

// Resolve returns the user identified by raw initData, or the development
// user when raw is empty and the fallback is enabled.
func (r *Resolver) Resolve(raw string) (User, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if r.cfg.DevFallback {
			return DevUser, nil
		}
		return User{}, ErrOutsideHost
	}

	if r.cfg.Verify {
		if err := VerifyInitData(raw, r.cfg.BotToken, r.cfg.MaxAge, r.now()); err != nil {
			return User{}, fmt.Errorf("verify init data: %w", err)
		}
	}

	data, err := ParseInitData(raw)
	if err != nil {
		if errors.Is(err, ErrMissingUser) && r.cfg.DevFallback {
			return DevUser, nil
		}
		return User{}, err
	}
	return data.User, nil
}
