package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLoggerNotifierLogsMessage(t *testing.T) {
	var buf bytes.Buffer
	n := NewLoggerNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := n.Send(context.Background(), Message{Kind: KindWithdrawalRequest, AccountID: "u1", Body: "*hi*"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if record["op"] != "notify" || record["account_id"] != "u1" || record["kind"] != KindWithdrawalRequest || record["body"] != "*hi*" {
		t.Fatalf("unexpected log record: %v", record)
	}
}

func TestLoggerNotifierHonoursCancelledContext(t *testing.T) {
	var buf bytes.Buffer
	n := NewLoggerNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Send(ctx, Message{Body: "hi"}); err == nil {
		t.Fatalf("expected context error")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged, got %q", buf.String())
	}
}
