package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/studyvisa-ai-platform/internal/channels"
)

// ParseWebhookEvent extracts inbound user messages from a webhook event.
// Delivery status callbacks and unsupported message types are skipped.
func ParseWebhookEvent(event WebhookEvent) []channels.InboundEvent {
	var events []channels.InboundEvent

	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}

			for _, m := range change.Value.Messages {
				parsed := channels.InboundEvent{
					Channel:     channels.WhatsApp,
					Identity:    m.From,
					DisplayName: names[m.From],
					MessageID:   m.ID,
					ReceivedAt:  parseTimestamp(m.Timestamp),
				}

				switch {
				case m.Type == "audio" || m.Type == "voice" || m.Audio != nil:
					parsed.Voice = true
				case m.Text != nil:
					parsed.Text = m.Text.Body
				case m.Button != nil:
					parsed.Text = m.Button.Text
				case m.Interactive != nil && m.Interactive.ButtonReply != nil:
					parsed.Text = m.Interactive.ButtonReply.Title
				case m.Interactive != nil && m.Interactive.ListReply != nil:
					parsed.Text = m.Interactive.ListReply.Title
				default:
					continue
				}

				if parsed.Identity == "" {
					continue
				}
				events = append(events, parsed)
			}
		}
	}

	return events
}

// VerifySignature verifies the X-Hub-Signature-256 header.
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}

	// Signature format: "sha256=<hex>"
	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) || len(signature) == len(prefix) {
		return false
	}
	sigHex := signature[len(prefix):]

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sigHex))
}

func parseTimestamp(raw string) time.Time {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
