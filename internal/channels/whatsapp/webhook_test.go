package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
)

const textPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA_ID",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [{"profile": {"name": "Ali Raza"}, "wa_id": "923001234567"}],
        "messages": [
          {"from": "923001234567", "id": "wamid.1", "timestamp": "1700000000", "type": "text", "text": {"body": "Hi"}},
          {"from": "923001234567", "id": "wamid.2", "timestamp": "1700000005", "type": "audio", "audio": {"id": "media1", "mime_type": "audio/ogg", "voice": true}},
          {"from": "923001234567", "id": "wamid.3", "timestamp": "1700000009", "type": "sticker"}
        ]
      }
    }]
  }]
}`

func TestVerifySignature(t *testing.T) {
	secret := "test_app_secret"
	body := []byte(`{"object":"whatsapp_business_account","entry":[]}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	validSig := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		want      bool
	}{
		{"valid signature", secret, body, validSig, true},
		{"wrong signature", secret, body, "sha256=0000000000000000000000000000000000000000000000000000000000000000", false},
		{"empty signature", secret, body, "", false},
		{"empty secret", "", body, validSig, false},
		{"missing prefix", secret, body, hex.EncodeToString([]byte("abcdef")), false},
		{"tampered body", secret, []byte(`tampered`), validSig, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifySignature(tt.secret, tt.body, tt.signature)
			if got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseWebhookEvent(t *testing.T) {
	var event WebhookEvent
	if err := json.Unmarshal([]byte(textPayload), &event); err != nil {
		t.Fatal(err)
	}

	events := ParseWebhookEvent(event)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Text != "Hi" || events[0].DisplayName != "Ali Raza" || events[0].Identity != "923001234567" {
		t.Errorf("unexpected text event: %#v", events[0])
	}
	if events[0].ReceivedAt.Unix() != 1700000000 {
		t.Errorf("unexpected timestamp: %v", events[0].ReceivedAt)
	}
	if !events[1].Voice || events[1].Text != "" {
		t.Errorf("expected voice marker, got %#v", events[1])
	}
}

func TestParseWebhookEvent_StatusCallback(t *testing.T) {
	payload := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{"messaging_product":"whatsapp","statuses":[{"id":"wamid.9","status":"delivered"}]}}]}]}`
	var event WebhookEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		t.Fatal(err)
	}
	if events := ParseWebhookEvent(event); len(events) != 0 {
		t.Fatalf("expected no events, got %#v", events)
	}
}
