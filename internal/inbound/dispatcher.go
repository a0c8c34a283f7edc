package inbound

import (
	"context"
	"time"

	"github.com/wolfman30/studyvisa-ai-platform/internal/channels"
	"github.com/wolfman30/studyvisa-ai-platform/internal/dialogue"
)

// StatusQueued is the webhook status tag for turns handed to a worker.
const StatusQueued = "queued"

// Dispatcher hands a normalized event to the dialogue engine, now or later,
// and returns the status tag for the webhook response.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt channels.InboundEvent) (string, error)
}

type turnHandler interface {
	HandleTurn(ctx context.Context, evt channels.InboundEvent) (dialogue.Outcome, error)
}

type turnPublisher interface {
	EnqueueTurn(ctx context.Context, evt channels.InboundEvent) (string, error)
}

// InlineDispatcher runs the turn inside the webhook request. The turn is
// detached from the request so a provider disconnect does not abort it.
type InlineDispatcher struct {
	engine  turnHandler
	timeout time.Duration
}

func NewInlineDispatcher(engine turnHandler, timeout time.Duration) *InlineDispatcher {
	if engine == nil {
		panic("inbound: dialogue engine required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &InlineDispatcher{engine: engine, timeout: timeout}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, evt channels.InboundEvent) (string, error) {
	turnCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	outcome, err := d.engine.HandleTurn(turnCtx, evt)
	if err != nil {
		return "", err
	}
	return string(outcome), nil
}

// QueueDispatcher publishes the turn for a conversation worker.
type QueueDispatcher struct {
	publisher turnPublisher
}

func NewQueueDispatcher(publisher turnPublisher) *QueueDispatcher {
	if publisher == nil {
		panic("inbound: publisher required")
	}
	return &QueueDispatcher{publisher: publisher}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, evt channels.InboundEvent) (string, error) {
	if _, err := d.publisher.EnqueueTurn(ctx, evt); err != nil {
		return "", err
	}
	return StatusQueued, nil
}
