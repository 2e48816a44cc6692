package session

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/flexyearn/flexyearn/internal/events"
	"github.com/flexyearn/flexyearn/internal/ledger"
	"github.com/flexyearn/flexyearn/internal/notification"
)

const minNameLength = 2

// WithdrawalRequest is the submitted withdrawal form.
type WithdrawalRequest struct {
	Name        string
	Destination string
}

// WithdrawalResult reports a relayed and debited withdrawal. Completed tells
// the client to clear the form and close the dialog.
type WithdrawalResult struct {
	Debited   int64
	Points    int64
	Payout    string
	Completed bool
}

// Validate checks the form fields without touching the network.
func (s *Session) Validate(req WithdrawalRequest) error {
	fields := make(map[string]string)
	if utf8.RuneCountInString(strings.TrimSpace(req.Name)) < minNameLength {
		fields["name"] = fmt.Sprintf("name must be at least %d characters", minNameLength)
	}
	if !s.deps.Settings.Destination.MatchString(strings.TrimSpace(req.Destination)) {
		fields["destination"] = s.deps.Settings.DestinationMsg
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Withdraw relays a withdrawal request to the operator and debits the
// balance once the notification is confirmed. The balance is re-read from
// the store; the snapshot is never trusted for the threshold check.
func (s *Session) Withdraw(ctx context.Context, req WithdrawalRequest) (WithdrawalResult, error) {
	if err := s.touch(); err != nil {
		return WithdrawalResult{}, err
	}
	if err := s.Validate(req); err != nil {
		s.logger.Info("withdrawal form rejected", "op", "withdraw", "error", err)
		return WithdrawalResult{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Destination = strings.TrimSpace(req.Destination)

	s.mu.Lock()
	if s.withdrawing {
		s.mu.Unlock()
		return WithdrawalResult{}, ErrBusy
	}
	s.withdrawing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.withdrawing = false
		s.mu.Unlock()
	}()

	s.write.Lock()
	defer s.write.Unlock()

	acc, err := s.deps.Accounts.Load(ctx, s.user.ID)
	if err != nil {
		s.logger.Error("withdrawal balance check failed", "op", "withdraw", "error", err)
		return WithdrawalResult{}, fmt.Errorf("check balance: %w", err)
	}
	s.adopt(acc)

	minimum := s.deps.Settings.MinWithdrawal
	if acc.Points < minimum {
		s.logger.Info("withdrawal below minimum", "op", "withdraw", "points", acc.Points, "minimum", minimum)
		return WithdrawalResult{}, fmt.Errorf("you need at least %d points to withdraw: %w", minimum, ErrBelowMinimum)
	}

	amount := minimum
	if s.deps.Settings.DebitFull {
		amount = acc.Points
	}
	quote := s.deps.Rate.Quote(amount).String()

	err = s.deps.Notifier.Send(ctx, notification.Message{
		Kind:      notification.KindWithdrawalRequest,
		AccountID: s.user.ID,
		Body:      s.withdrawalMessage(req, acc.Points, quote),
	})
	if err != nil {
		s.logger.Error("withdrawal notification failed", "op", "withdraw", "error", err)
		return WithdrawalResult{}, fmt.Errorf("%w: %w", ErrNotifyFailed, err)
	}

	debited, err := s.deps.Accounts.Repository().Debit(ctx, s.user.ID, amount)
	if err != nil {
		// The operator already has the request; the balance is still uncharged.
		s.logger.Error("withdrawal relayed but debit failed", "op", "withdraw", "amount", amount, "error", err)
		return WithdrawalResult{}, fmt.Errorf("%w: %w", ErrNotDebited, err)
	}
	s.adopt(debited)

	s.record(ctx, ledger.KindWithdrawal, -amount, debited.Points)
	s.publish(ctx, events.Withdrawal{
		AccountID:   s.user.ID,
		Name:        req.Name,
		Destination: req.Destination,
		Debited:     amount,
		Balance:     debited.Points,
		Payout:      quote,
		OccurredAt:  s.deps.Now().UTC(),
	})
	s.logger.Info("withdrawal completed", "op", "withdraw", "debited", amount, "points", debited.Points)

	return WithdrawalResult{Debited: amount, Points: debited.Points, Payout: quote, Completed: true}, nil
}

func (s *Session) withdrawalMessage(req WithdrawalRequest, balance int64, quote string) string {
	esc := notification.EscapeMarkdown
	var b strings.Builder
	b.WriteString("*New withdrawal request*\n\n")
	fmt.Fprintf(&b, "*Name:* %s\n", esc(req.Name))
	fmt.Fprintf(&b, "*Destination:* %s\n", esc(req.Destination))
	fmt.Fprintf(&b, "*Balance:* %d points\n", balance)
	fmt.Fprintf(&b, "*Payout:* %s\n", esc(quote))
	fmt.Fprintf(&b, "*User ID:* %s\n", esc(s.user.ID))
	if s.user.Username != "" {
		fmt.Fprintf(&b, "*Username:* @%s\n", esc(s.user.Username))
	}
	if name := s.user.DisplayName(); name != "" {
		fmt.Fprintf(&b, "*Telegram name:* %s\n", esc(name))
	}
	fmt.Fprintf(&b, "*Requested at:* %s", s.deps.Now().UTC().Format(time.RFC3339))
	return b.String()
}

func (s *Session) publish(ctx context.Context, evt events.Withdrawal) {
	if err := s.deps.Events.Publish(ctx, events.WithdrawalCompleted, evt); err != nil {
		s.logger.Warn("publish withdrawal event failed", "op", "withdraw", "error", err)
	}
}
