package events

import (
	"context"
	"encoding/json"
	"testing"
)

func TestRecorderCapturesJSON(t *testing.T) {
	var rec Recorder
	evt := Withdrawal{AccountID: "u1", Debited: 50_000, Balance: 10_000, Payout: "100 DZD"}

	if err := rec.Publish(context.Background(), WithdrawalCompleted, evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := rec.Events()
	if len(got) != 1 || got[0].RoutingKey != WithdrawalCompleted {
		t.Fatalf("unexpected events: %+v", got)
	}
	var decoded Withdrawal
	if err := json.Unmarshal(got[0].Body, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.AccountID != "u1" || decoded.Debited != 50_000 {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), WithdrawalCompleted, nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
