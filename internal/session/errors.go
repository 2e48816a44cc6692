package session

import (
	"errors"
	"sort"
	"strings"

	"github.com/flexyearn/flexyearn/internal/identity"
)

var (
	// ErrNoIdentity means no identity has been resolved for the caller.
	ErrNoIdentity = errors.New("no identity loaded")
	// ErrBootstrap wraps store failures while loading the account.
	ErrBootstrap = errors.New("could not load your account")
	// ErrClosed is returned by a session that has been torn down.
	ErrClosed = errors.New("session closed")
	// ErrCoolingDown blocks reward claims until the cooldown elapses.
	ErrCoolingDown = errors.New("please wait for the cooldown to finish")
	// ErrBusy means the same action is already in flight for this identity.
	ErrBusy = errors.New("action already in progress")
	// ErrNoSpinsLeft means the daily spin allotment is exhausted.
	ErrNoSpinsLeft = errors.New("no spins left today")
	// ErrPersist wraps store failures after an optimistic update was reverted.
	ErrPersist = errors.New("could not save your balance")
	// ErrBelowMinimum rejects withdrawals under the threshold.
	ErrBelowMinimum = errors.New("balance below withdrawal minimum")
	// ErrNotifyFailed means the operator notification was not confirmed.
	ErrNotifyFailed = errors.New("could not send withdrawal request")
	// ErrNotDebited means the request was relayed but the debit write failed.
	ErrNotDebited = errors.New("withdrawal sent but balance update failed")
)

// ValidationError carries per-field messages for rejected form input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Severity tells the caller whether the app can continue after an error.
type Severity int

const (
	// Recoverable errors are shown as a transient notice; the user may retry.
	Recoverable Severity = iota
	// Fatal errors end the session; the client shows a terminal error screen.
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "recoverable"
}

// Classify maps a controller error onto the error taxonomy.
func Classify(err error) Severity {
	switch {
	case errors.Is(err, ErrNoIdentity),
		errors.Is(err, ErrBootstrap),
		errors.Is(err, identity.ErrOutsideHost):
		return Fatal
	default:
		return Recoverable
	}
}
