package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/studyvisa-ai-platform/internal/channels"
	"github.com/wolfman30/studyvisa-ai-platform/internal/observability/metrics"
)

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantText  string
		wantVoice bool
	}{
		{
			name:      "text message",
			body:      `{"update_id":1,"message":{"message_id":10,"from":{"id":7,"first_name":"Hina","last_name":"Malik"},"chat":{"id":7,"type":"private"},"date":1700000000,"text":"/start"}}`,
			wantCount: 1,
			wantText:  "/start",
		},
		{
			name:      "voice note",
			body:      `{"update_id":2,"message":{"message_id":11,"from":{"id":7,"first_name":"Hina"},"chat":{"id":7,"type":"private"},"date":1700000001,"voice":{"file_id":"abc","duration":4}}}`,
			wantCount: 1,
			wantVoice: true,
		},
		{
			name: "edited message ignored",
			body: `{"update_id":3,"edited_message":{"message_id":10,"chat":{"id":7},"date":1700000002,"text":"hi"}}`,
		},
		{
			name: "photo without caption ignored",
			body: `{"update_id":4,"message":{"message_id":12,"chat":{"id":7},"date":1700000003}}`,
		},
		{
			name: "bot sender ignored",
			body: `{"update_id":5,"message":{"message_id":13,"from":{"id":8,"is_bot":true,"first_name":"Other"},"chat":{"id":7},"date":1700000004,"text":"hi"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var update Update
			require.NoError(t, json.Unmarshal([]byte(tt.body), &update))
			events := ParseUpdate(update)
			require.Len(t, events, tt.wantCount)
			if tt.wantCount == 0 {
				return
			}
			assert.Equal(t, "7", events[0].Identity)
			assert.Equal(t, channels.Telegram, events[0].Channel)
			assert.Equal(t, tt.wantText, events[0].Text)
			assert.Equal(t, tt.wantVoice, events[0].Voice)
		})
	}
}

func TestNormalize_SecretToken(t *testing.T) {
	a := NewAdapter("token", "hook-secret", nil, nil)
	body := []byte(`{"update_id":1,"message":{"message_id":10,"from":{"id":7,"first_name":"Hina","last_name":"Malik"},"chat":{"id":7},"date":1700000000,"text":"hi"}}`)

	_, err := a.Normalize(body, http.Header{})
	assert.True(t, errors.Is(err, channels.ErrInvalidSignature))

	header := http.Header{}
	header.Set(secretHeader, "hook-secret")
	events, err := a.Normalize(body, header)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Hina Malik", events[0].DisplayName)
}

func TestNormalize_Malformed(t *testing.T) {
	a := NewAdapter("token", "", nil, nil)
	_, err := a.Normalize([]byte(`not json`), http.Header{})
	assert.Error(t, err)
}

func TestSend(t *testing.T) {
	var received SendMessageRequest
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	m := metrics.NewDialogueMetrics(reg)
	a := NewAdapter("123:ABC", "", m, nil)
	a.Client().SetAPIBase(server.URL)
	a.Send(context.Background(), "7", "*Hello*")

	assert.Equal(t, "/bot123:ABC/sendMessage", path)
	assert.Equal(t, "7", received.ChatID)
	assert.Equal(t, "Markdown", received.ParseMode)
	assert.Equal(t, "*Hello*", received.Text)
}

func TestSend_APIErrorIsSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	a := NewAdapter("123:ABC", "", nil, nil)
	a.Client().SetAPIBase(server.URL)
	a.Send(context.Background(), "7", "hello")

	err := a.Client().SendMessage(context.Background(), "7", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}
