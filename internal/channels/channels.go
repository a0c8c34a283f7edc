// Package channels defines the provider-neutral messaging adapter contract.
package channels

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// Channel names.
const (
	WhatsApp = "whatsapp"
	Telegram = "telegram"
)

// ErrInvalidSignature is returned by Normalize when a configured webhook
// secret does not match the request.
var ErrInvalidSignature = errors.New("channels: invalid webhook signature")

// InboundEvent is one user message normalized from a provider webhook.
// Voice is set for audio/voice notes; Text is empty in that case.
type InboundEvent struct {
	Channel     string    `json:"channel"`
	Identity    string    `json:"identity"`
	DisplayName string    `json:"display_name,omitempty"`
	Text        string    `json:"text,omitempty"`
	Voice       bool      `json:"voice,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

// Adapter delivers outbound text and parses inbound webhooks for one provider.
type Adapter interface {
	Channel() string
	// Send is best effort: failures are logged and counted, never returned.
	Send(ctx context.Context, identity, text string)
	Normalize(body []byte, header http.Header) ([]InboundEvent, error)
}

// Verifier answers a provider's subscription handshake.
type Verifier interface {
	VerifySubscription(mode, token string) bool
}

// Registry routes outbound sends to the adapter for a channel.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	logger   *logging.Logger
}

func NewRegistry(logger *logging.Logger, adapters ...Adapter) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Registry{adapters: make(map[string]Adapter), logger: logger}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for a.Channel().
func (r *Registry) Register(a Adapter) {
	if a == nil {
		return
	}
	r.mu.Lock()
	r.adapters[a.Channel()] = a
	r.mu.Unlock()
}

// Get returns the adapter registered for channel.
func (r *Registry) Get(channel string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[channel]
	return a, ok
}

// Send delivers text through the channel's adapter. Unknown channels are logged and dropped.
func (r *Registry) Send(ctx context.Context, channel, identity, text string) {
	a, ok := r.Get(channel)
	if !ok {
		r.logger.Warn("no adapter registered for channel", "channel", channel, "identity", identity)
		return
	}
	a.Send(ctx, identity, text)
}
