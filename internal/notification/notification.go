package notification

import (
	"context"
	"log/slog"
)

// KindWithdrawalRequest is a withdrawal relayed to the operator for manual payout.
const KindWithdrawalRequest = "withdrawal_request"

// Message is one operator notification. Body is Markdown; AccountID names
// the user the message is about.
type Message struct {
	Kind        string
	AccountID   string
	Destination string
	Body        string
}

// Notifier relays messages to the operator. A nil error means the endpoint
// confirmed delivery.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier stands in for the Bot API in development: every message is
// written to the log and reported as delivered.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier builds a notifier that only logs.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.LogAttrs(ctx, slog.LevelInfo, "operator notification not relayed, telegram disabled",
		slog.String("op", "notify"),
		slog.String("kind", message.Kind),
		slog.String("account_id", message.AccountID),
		slog.String("destination", message.Destination),
		slog.String("body", message.Body),
	)
	return nil
}
