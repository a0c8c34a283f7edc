package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/studyvisa-ai-platform/internal/channels"
	"github.com/wolfman30/studyvisa-ai-platform/internal/dialogue"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []channels.InboundEvent
	err    error
}

func (r *recordingHandler) HandleTurn(ctx context.Context, evt channels.InboundEvent) (dialogue.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	if r.err != nil {
		return "", r.err
	}
	return dialogue.OutcomeMenu, nil
}

func (r *recordingHandler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type countingQueue struct {
	*MemoryQueue
	mu      sync.Mutex
	deleted int
}

func (c *countingQueue) Delete(ctx context.Context, receiptHandle string) error {
	c.mu.Lock()
	c.deleted++
	c.mu.Unlock()
	return nil
}

func (c *countingQueue) deletes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleted
}

func TestWorkerProcessesPublishedTurns(t *testing.T) {
	queue := &countingQueue{MemoryQueue: NewMemoryQueue(10)}
	handler := &recordingHandler{}
	worker := NewWorker(handler, queue, logging.Default(), WithWorkerCount(2), WithReceiveBatchSize(1), WithReceiveWaitSeconds(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	publisher := NewPublisher(queue, logging.Default())
	for _, text := range []string{"hi", "status", "canada"} {
		if _, err := publisher.EnqueueTurn(ctx, channels.InboundEvent{Channel: channels.Telegram, Identity: "42", Text: text}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	waitFor(func() bool { return handler.count() == 3 && queue.deletes() == 3 }, time.Second, t)

	cancel()
	worker.Wait()
}

func TestWorkerDropsFailedAndMalformedTurns(t *testing.T) {
	queue := &countingQueue{MemoryQueue: NewMemoryQueue(10)}
	handler := &recordingHandler{err: errors.New("db down")}
	worker := NewWorker(handler, queue, logging.Default(), WithWorkerCount(1), WithReceiveWaitSeconds(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	if err := queue.Send(ctx, "{not json"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := NewPublisher(queue, nil).EnqueueTurn(ctx, channels.InboundEvent{Channel: channels.WhatsApp, Identity: "1", Text: "hi"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(func() bool { return queue.deletes() == 2 }, time.Second, t)
	if handler.count() != 1 {
		t.Fatalf("expected only the valid turn to reach the handler, got %d", handler.count())
	}

	cancel()
	worker.Wait()
}

func TestWorkerOptionsClamp(t *testing.T) {
	w := NewWorker(&recordingHandler{}, NewMemoryQueue(1), nil,
		WithWorkerCount(0),
		WithReceiveWaitSeconds(120),
		WithReceiveBatchSize(50),
		WithTurnTimeout(-time.Second),
	)
	if w.cfg.workers != defaultWorkerCount {
		t.Fatalf("expected default worker count, got %d", w.cfg.workers)
	}
	if w.cfg.receiveWaitSecs != maxWaitSeconds {
		t.Fatalf("expected wait clamp, got %d", w.cfg.receiveWaitSecs)
	}
	if w.cfg.receiveBatchSize != maxReceiveBatchSize {
		t.Fatalf("expected batch clamp, got %d", w.cfg.receiveBatchSize)
	}
	if w.cfg.turnTimeout != defaultTurnTimeout {
		t.Fatalf("expected default turn timeout, got %s", w.cfg.turnTimeout)
	}
}

func waitFor(cond func() bool, timeout time.Duration, t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
