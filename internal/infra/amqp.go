package infra

import (
	"fmt"
	"net/url"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NewAMQPConnection dials RabbitMQ after normalising the URL.
func NewAMQPConnection(raw string) (*amqp.Connection, error) {
	if raw == "" {
		return nil, fmt.Errorf("amqp url is required")
	}

	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("parse amqp url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return nil, fmt.Errorf("amqp url scheme must be amqp or amqps, got %q", u.Scheme)
	}

	conn, err := amqp.Dial(clean)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	return conn, nil
}
