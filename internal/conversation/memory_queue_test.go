package conversation

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryQueue_SendReceiveBatches(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	for _, body := range []string{"a", "b", "c"} {
		if err := q.Send(ctx, body); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 queued, got %d", q.Len())
	}

	msgs, err := q.Receive(ctx, 2, 1)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Body != "a" || msgs[1].Body != "b" {
		t.Fatalf("unexpected batch %+v", msgs)
	}
	if msgs[0].ReceiptHandle == "" {
		t.Fatalf("expected receipt handle")
	}

	msgs, err = q.Receive(ctx, 5, 1)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Body != "c" {
		t.Fatalf("unexpected batch %+v", msgs)
	}
}

func TestMemoryQueue_ReceiveCancelled(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Receive(ctx, 1, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryQueue_SendBlocksUntilCancelled(t *testing.T) {
	q := NewMemoryQueue(1)
	if err := q.Send(context.Background(), "first"); err != nil {
		t.Fatalf("send: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Send(ctx, "second"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled on full queue, got %v", err)
	}
}
