package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/flexyearn/flexyearn/internal/account"
	"github.com/flexyearn/flexyearn/internal/config"
	"github.com/flexyearn/flexyearn/internal/events"
	"github.com/flexyearn/flexyearn/internal/ledger"
)

var validForm = WithdrawalRequest{Name: "Amina", Destination: "0555123456"}

func TestWithdrawBelowMinimumIsRejectedBeforeNotify(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, account.Account{ID: "u1", Points: 49_999})
	s := f.acquire(t, "u1")

	_, err := s.Withdraw(context.Background(), validForm)
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	if !strings.Contains(err.Error(), "need at least 50000") {
		t.Fatalf("expected threshold in message, got %q", err.Error())
	}
	if f.notifier.count() != 0 || f.repo.debits != 0 {
		t.Fatalf("no notification or debit expected")
	}
	if f.stored(t, "u1").Points != 49_999 {
		t.Fatalf("balance changed")
	}
}

func TestWithdrawDebitsMinimumAndCompletes(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, account.Account{ID: "u1", Points: 60_000})
	s := f.acquire(t, "u1")

	res, err := s.Withdraw(context.Background(), validForm)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !res.Completed || res.Points != 10_000 || res.Debited != 50_000 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Payout != "100.00 DZD" {
		t.Fatalf("unexpected payout quote %q", res.Payout)
	}
	if f.stored(t, "u1").Points != 10_000 || s.View().Points != 10_000 {
		t.Fatalf("expected balance 10000 in store and snapshot")
	}

	if f.notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", f.notifier.count())
	}
	if f.notifier.sent[0].AccountID != "u1" {
		t.Fatalf("expected message tagged with u1, got %q", f.notifier.sent[0].AccountID)
	}
	body := f.notifier.sent[0].Body
	for _, want := range []string{"Amina", "0555123456", "60000", "u1"} {
		if !strings.Contains(body, want) {
			t.Fatalf("message missing %q:\n%s", want, body)
		}
	}

	published := f.events.Events()
	if len(published) != 1 || published[0].RoutingKey != events.WithdrawalCompleted {
		t.Fatalf("expected withdrawal event, got %+v", published)
	}
	var evt events.Withdrawal
	if err := json.Unmarshal(published[0].Body, &evt); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if evt.Debited != 50_000 || evt.Balance != 10_000 {
		t.Fatalf("unexpected event: %+v", evt)
	}

	history, _ := f.journal.History(context.Background(), "u1", 10)
	if len(history) != 1 || history[0].Kind != ledger.KindWithdrawal || history[0].Amount != -50_000 {
		t.Fatalf("unexpected journal: %+v", history)
	}
}

func TestWithdrawFullDebitMode(t *testing.T) {
	f := newFixture(t, func(r *config.Rules, _ *Deps) { r.DebitMode = config.DebitFull })
	f.seed(t, account.Account{ID: "u1", Points: 60_000})
	s := f.acquire(t, "u1")

	res, err := s.Withdraw(context.Background(), validForm)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if res.Debited != 60_000 || res.Points != 0 {
		t.Fatalf("expected full balance debited, got %+v", res)
	}
}

func TestWithdrawNotifyFailureDoesNotDebit(t *testing.T) {
	f := newFixture(t, nil)
	f.notifier.err = errors.New("telegram rejected message: chat not found")
	f.seed(t, account.Account{ID: "u1", Points: 60_000})
	s := f.acquire(t, "u1")

	_, err := s.Withdraw(context.Background(), validForm)
	if !errors.Is(err, ErrNotifyFailed) {
		t.Fatalf("expected ErrNotifyFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected endpoint description surfaced, got %q", err.Error())
	}
	if f.repo.debits != 0 || f.stored(t, "u1").Points != 60_000 {
		t.Fatalf("no debit expected after failed notification")
	}
	if Classify(err) != Recoverable {
		t.Fatalf("notification failure must be recoverable")
	}
}

func TestWithdrawDebitFailureIsReported(t *testing.T) {
	f := newFixture(t, nil)
	f.repo.debitErr = errors.New("connection reset")
	f.seed(t, account.Account{ID: "u1", Points: 60_000})
	s := f.acquire(t, "u1")

	_, err := s.Withdraw(context.Background(), validForm)
	if !errors.Is(err, ErrNotDebited) {
		t.Fatalf("expected ErrNotDebited, got %v", err)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("notification should have been sent once")
	}
	if len(f.events.Events()) != 0 {
		t.Fatalf("no event expected for an uncharged withdrawal")
	}
}

func TestWithdrawReadsAuthoritativeBalance(t *testing.T) {
	f := newFixture(t, nil)
	s := f.acquire(t, "u1")

	points := int64(75_000)
	if _, err := f.repo.Repository.Merge(context.Background(), "u1", account.Patch{Points: &points}); err != nil {
		t.Fatalf("external write: %v", err)
	}
	if s.View().Points != 0 {
		t.Fatalf("snapshot should still be stale")
	}

	res, err := s.Withdraw(context.Background(), validForm)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if res.Points != 25_000 {
		t.Fatalf("expected 25000 left, got %d", res.Points)
	}
}

func TestWithdrawValidation(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		req     WithdrawalRequest
		fields  []string
	}{
		{"valid phone", config.DestinationPhone, WithdrawalRequest{"Al", "0712345678"}, nil},
		{"trimmed name too short", config.DestinationPhone, WithdrawalRequest{"  A  ", "0612345678"}, []string{"name"}},
		{"empty name", config.DestinationPhone, WithdrawalRequest{"", "0612345678"}, []string{"name"}},
		{"wrong prefix", config.DestinationPhone, WithdrawalRequest{"Amina", "0812345678"}, []string{"destination"}},
		{"too short", config.DestinationPhone, WithdrawalRequest{"Amina", "055512345"}, []string{"destination"}},
		{"too long", config.DestinationPhone, WithdrawalRequest{"Amina", "05551234567"}, []string{"destination"}},
		{"both bad", config.DestinationPhone, WithdrawalRequest{"x", "abc"}, []string{"name", "destination"}},
		{"valid wallet", config.DestinationWallet, WithdrawalRequest{"Amina", "0x" + strings.Repeat("aF", 20)}, nil},
		{"short wallet", config.DestinationWallet, WithdrawalRequest{"Amina", "0x1234"}, []string{"destination"}},
		{"phone in wallet mode", config.DestinationWallet, WithdrawalRequest{"Amina", "0555123456"}, []string{"destination"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, func(r *config.Rules, _ *Deps) { r.DestinationPattern = tc.pattern })
			s := f.acquire(t, "u1")

			err := s.Validate(tc.req)
			if len(tc.fields) == 0 {
				if err != nil {
					t.Fatalf("expected valid form, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Fields) != len(tc.fields) {
				t.Fatalf("expected fields %v, got %v", tc.fields, verr.Fields)
			}
			for _, field := range tc.fields {
				if verr.Fields[field] == "" {
					t.Fatalf("missing message for %s", field)
				}
			}
		})
	}
}

func TestWithdrawInvalidFormMakesNoCalls(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, account.Account{ID: "u1", Points: 60_000})
	s := f.acquire(t, "u1")

	_, err := s.Withdraw(context.Background(), WithdrawalRequest{Name: "A", Destination: "123"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if f.notifier.count() != 0 || f.repo.debits != 0 {
		t.Fatalf("invalid form must not reach the network")
	}
}

func TestWithdrawEscapesMarkdown(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, account.Account{ID: "u1", Points: 50_000})
	s := f.acquire(t, "u1")

	if _, err := s.Withdraw(context.Background(), WithdrawalRequest{Name: "a_b*c", Destination: "0555123456"}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !strings.Contains(f.notifier.sent[0].Body, `a\_b\*c`) {
		t.Fatalf("expected escaped name, got:\n%s", f.notifier.sent[0].Body)
	}
}
