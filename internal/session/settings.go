package session

import (
	"log/slog"
	"math/rand"
	"regexp"
	"time"

	"github.com/flexyearn/flexyearn/internal/account"
	"github.com/flexyearn/flexyearn/internal/config"
	"github.com/flexyearn/flexyearn/internal/events"
	"github.com/flexyearn/flexyearn/internal/ledger"
	"github.com/flexyearn/flexyearn/internal/logging"
	"github.com/flexyearn/flexyearn/internal/notification"
	"github.com/flexyearn/flexyearn/internal/payout"
)

var (
	phonePattern  = regexp.MustCompile(`^(05|06|07)\d{8}$`)
	walletPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// Settings are the reward rules the controllers enforce.
type Settings struct {
	RewardPoints   int64
	Cooldown       time.Duration
	CooldownTick   time.Duration
	Prizes         []int64
	SpinSettle     time.Duration
	SpinRequiresAd bool
	MinWithdrawal  int64
	DebitFull      bool
	Destination    *regexp.Regexp
	DestinationMsg string
	IdleTTL        time.Duration
}

// SettingsFromRules converts operator rules into controller settings.
func SettingsFromRules(r config.Rules, idleTTL time.Duration) Settings {
	s := Settings{
		RewardPoints:   r.RewardPoints,
		Cooldown:       r.Cooldown,
		CooldownTick:   time.Second,
		Prizes:         append([]int64(nil), r.Prizes...),
		SpinSettle:     r.SpinSettle,
		SpinRequiresAd: r.SpinRequiresAd,
		MinWithdrawal:  r.MinWithdrawal,
		DebitFull:      r.DebitMode == config.DebitFull,
		Destination:    phonePattern,
		DestinationMsg: "enter a valid phone number (05, 06 or 07 followed by 8 digits)",
		IdleTTL:        idleTTL,
	}
	if r.DestinationPattern == config.DestinationWallet {
		s.Destination = walletPattern
		s.DestinationMsg = "enter a valid wallet address (0x followed by 40 hex characters)"
	}
	return s
}

// PolicyFromRules builds the spin reset policy for the account service.
func PolicyFromRules(r config.Rules) account.SpinPolicy {
	mode := account.ResetCalendar
	if r.SpinReset == config.SpinResetRolling {
		mode = account.ResetRolling
	}
	return account.SpinPolicy{Daily: r.DailySpins, Mode: mode}
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Accounts *account.Service
	Journal  ledger.Journal
	Notifier notification.Notifier
	Events   events.Publisher
	Rate     payout.Rate
	Logger   *slog.Logger
	Settings Settings

	// Rand returns a uniform int in [0, n). Defaults to math/rand.
	Rand func(n int) int
	// Now defaults to time.Now. The account service is switched to the
	// same clock.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Journal == nil {
		d.Journal = ledger.NewInMemory()
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLoggerNotifier(d.Logger)
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Rand == nil {
		d.Rand = rand.Intn
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Accounts != nil {
		d.Accounts = d.Accounts.WithClock(d.Now)
	}
	if d.Settings.Destination == nil {
		d.Settings.Destination = phonePattern
	}
	return d
}
