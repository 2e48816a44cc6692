package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestInMemoryJournal_RecordAssignsIDs(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()

	e, err := j.Record(ctx, Entry{AccountID: "u1", Kind: KindReward, Amount: 10, BalanceAfter: 10})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if e.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
	if e.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestInMemoryJournal_RejectsIncompleteEntries(t *testing.T) {
	j := NewInMemory()
	if _, err := j.Record(context.Background(), Entry{Kind: KindSpin}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
	if _, err := j.Record(context.Background(), Entry{AccountID: "u1"}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestInMemoryJournal_HistoryNewestFirst(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()

	balance := int64(0)
	for _, amount := range []int64{10, 500, -50_000} {
		balance += amount
		if _, err := j.Record(ctx, Entry{AccountID: "u1", Kind: KindReward, Amount: amount, BalanceAfter: balance}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := j.Record(ctx, Entry{AccountID: "u2", Kind: KindReward, Amount: 10, BalanceAfter: 10}); err != nil {
		t.Fatalf("record: %v", err)
	}

	history, err := j.History(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].Amount != -50_000 || history[1].Amount != 500 {
		t.Fatalf("unexpected order: %+v", history)
	}

	empty, err := j.History(ctx, "nobody", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no entries, got %d", len(empty))
	}
}

func TestInMemoryJournal_ConcurrentRecords(t *testing.T) {
	j := NewInMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := j.Record(ctx, Entry{AccountID: "u1", Kind: KindSpin, Amount: int64(i)}); err != nil {
				panic(fmt.Sprintf("record %d: %v", i, err))
			}
		}(i)
	}
	wg.Wait()

	history, err := j.History(ctx, "u1", maxHistoryLimit)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(history))
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, defaultHistoryLimit},
		{-3, defaultHistoryLimit},
		{10, 10},
		{1_000, maxHistoryLimit},
	}
	for _, tc := range cases {
		if got := clampLimit(tc.in); got != tc.want {
			t.Fatalf("clampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
