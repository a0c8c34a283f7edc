package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/wolfman30/studyvisa-ai-platform/internal/channels"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// Config holds the WhatsApp Cloud API credentials.
type Config struct {
	AccessToken   string
	PhoneNumberID string
	AppSecret     string
	VerifyToken   string
}

// Adapter is the WhatsApp channel adapter.
type Adapter struct {
	cfg     Config
	client  *Client
	metrics *metrics.DialogueMetrics
	logger  *logging.Logger
}

// NewAdapter creates a WhatsApp adapter. Missing credentials turn Send into a logged no-op.
func NewAdapter(cfg Config, m *metrics.DialogueMetrics, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{
		cfg:     cfg,
		client:  NewClient(cfg.AccessToken, cfg.PhoneNumberID),
		metrics: m,
		logger:  logger,
	}
}

// Client exposes the underlying Cloud API client (tests point it at a fake server).
func (a *Adapter) Client() *Client {
	return a.client
}

func (a *Adapter) Channel() string {
	return channels.WhatsApp
}

// Configured reports whether outbound delivery has credentials.
func (a *Adapter) Configured() bool {
	return a.cfg.AccessToken != "" && a.cfg.PhoneNumberID != ""
}

// Send delivers a text message. Failures are logged and counted.
func (a *Adapter) Send(ctx context.Context, identity, text string) {
	if !a.Configured() {
		a.logger.Warn("whatsapp: credentials missing, dropping message", "to", identity)
		a.metrics.ObserveOutbound(channels.WhatsApp, "skipped")
		return
	}
	if _, err := a.client.SendTextMessage(ctx, identity, text); err != nil {
		a.logger.Error("whatsapp: failed to send message", "to", identity, "error", err)
		a.metrics.ObserveOutbound(channels.WhatsApp, "failed")
		return
	}
	a.metrics.ObserveOutbound(channels.WhatsApp, "sent")
}

// Normalize parses a webhook body. When an app secret is configured the
// X-Hub-Signature-256 header must match.
func (a *Adapter) Normalize(body []byte, header http.Header) ([]channels.InboundEvent, error) {
	if a.cfg.AppSecret != "" && !VerifySignature(a.cfg.AppSecret, body, header.Get("X-Hub-Signature-256")) {
		return nil, channels.ErrInvalidSignature
	}
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("whatsapp: decode webhook: %w", err)
	}
	return ParseWebhookEvent(event), nil
}

// VerifySubscription answers Meta's hub.mode/hub.verify_token handshake.
func (a *Adapter) VerifySubscription(mode, token string) bool {
	return mode == "subscribe" && a.cfg.VerifyToken != "" && token == a.cfg.VerifyToken
}
