package conversation

import (
	"context"
	"fmt"

	"github.com/wolfman30/studyvisa-ai-platform/internal/channels"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// Publisher enqueues dialogue turns for asynchronous processing.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// EnqueueTurn publishes one inbound event and returns its job id.
func (p *Publisher) EnqueueTurn(ctx context.Context, evt channels.InboundEvent) (string, error) {
	payload, body, err := encodePayload(turnPayload{Event: evt})
	if err != nil {
		return "", err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return "", fmt.Errorf("conversation: failed to enqueue turn: %w", err)
	}

	p.logger.Debug("dialogue turn enqueued", "job_id", payload.ID, "channel", evt.Channel)
	return payload.ID, nil
}
