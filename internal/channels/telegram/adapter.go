package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/studyvisa-ai-platform/internal/channels"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Adapter is the Telegram channel adapter.
type Adapter struct {
	token         string
	webhookSecret string
	client        *Client
	metrics       *metrics.DialogueMetrics
	logger        *logging.Logger
}

// NewAdapter creates a Telegram adapter. An empty token turns Send into a logged no-op.
func NewAdapter(token, webhookSecret string, m *metrics.DialogueMetrics, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{
		token:         token,
		webhookSecret: webhookSecret,
		client:        NewClient(token),
		metrics:       m,
		logger:        logger,
	}
}

// Client exposes the underlying Bot API client.
func (a *Adapter) Client() *Client {
	return a.client
}

func (a *Adapter) Channel() string {
	return channels.Telegram
}

// Send delivers text to a chat id. Failures are logged and counted.
func (a *Adapter) Send(ctx context.Context, identity, text string) {
	if a.token == "" {
		a.logger.Warn("telegram: credentials missing, dropping message", "chat_id", identity)
		a.metrics.ObserveOutbound(channels.Telegram, "skipped")
		return
	}
	if err := a.client.SendMessage(ctx, identity, text); err != nil {
		a.logger.Error("telegram: failed to send message", "chat_id", identity, "error", err)
		a.metrics.ObserveOutbound(channels.Telegram, "failed")
		return
	}
	a.metrics.ObserveOutbound(channels.Telegram, "sent")
}

// Normalize parses an update. When a webhook secret is configured the
// secret-token header must match it.
func (a *Adapter) Normalize(body []byte, header http.Header) ([]channels.InboundEvent, error) {
	if a.webhookSecret != "" {
		got := header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.webhookSecret)) != 1 {
			return nil, channels.ErrInvalidSignature
		}
	}
	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		return nil, fmt.Errorf("telegram: decode update: %w", err)
	}
	return ParseUpdate(update), nil
}

// ParseUpdate maps an update to at most one inbound event. Edits, bot
// messages and non-text, non-voice messages are skipped.
func ParseUpdate(update Update) []channels.InboundEvent {
	msg := update.Message
	if msg == nil || msg.Chat.ID == 0 {
		return nil
	}
	if msg.From != nil && msg.From.IsBot {
		return nil
	}

	event := channels.InboundEvent{
		Channel:    channels.Telegram,
		Identity:   strconv.FormatInt(msg.Chat.ID, 10),
		MessageID:  strconv.FormatInt(msg.MessageID, 10),
		ReceivedAt: time.Unix(msg.Date, 0).UTC(),
	}
	if msg.Date <= 0 {
		event.ReceivedAt = time.Now().UTC()
	}
	if msg.From != nil {
		event.DisplayName = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	}

	switch {
	case msg.Voice != nil || msg.Audio != nil:
		event.Voice = true
	case msg.Text != "":
		event.Text = msg.Text
	default:
		return nil
	}
	return []channels.InboundEvent{event}
}
