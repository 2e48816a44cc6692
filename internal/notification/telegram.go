package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier relays messages to an operator chat through the Bot API.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

const defaultTelegramTimeout = 10 * time.Second

// NewTelegramNotifier connects to the Bot API. An empty endpoint uses the
// public api.telegram.org; otherwise it must follow tgbotapi.APIEndpoint's
// "<base>/bot%s/%s" format. tgbotapi calls are not context-aware, so every
// request is bounded by timeout instead.
func NewTelegramNotifier(token, endpoint string, chatID int64, timeout time.Duration) (*TelegramNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if timeout <= 0 {
		timeout = defaultTelegramTimeout
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// Send posts message.Body with Markdown formatting. Destination, when set,
// overrides the operator chat. A cancelled ctx is honoured before the call;
// once sent, the request runs until the client timeout.
func (n *TelegramNotifier) Send(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID := n.chatID
	if message.Destination != "" {
		id, err := strconv.ParseInt(message.Destination, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid telegram chat id %q: %w", message.Destination, err)
		}
		chatID = id
	}

	msg := tgbotapi.NewMessage(chatID, message.Body)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return fmt.Errorf("telegram rejected message: %s", apiErr.Message)
		}
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// EscapeMarkdown escapes user-provided text for the Markdown parse mode.
func EscapeMarkdown(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text)
}
