package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendTextMessage(t *testing.T) {
	var received SendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/1234567890/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test_token" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatal(err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SendResponse{Messages: []SentMessage{{ID: "wamid.001"}}})
	}))
	defer server.Close()

	client := NewClient("test_token", "1234567890")
	client.SetGraphAPIBase(server.URL)

	resp, err := client.SendTextMessage(context.Background(), "923001234567", "Hello from bot")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].ID != "wamid.001" {
		t.Errorf("unexpected response: %#v", resp)
	}
	if received.MessagingProduct != "whatsapp" || received.To != "923001234567" {
		t.Errorf("unexpected request: %#v", received)
	}
	if received.Text.Body != "Hello from bot" {
		t.Errorf("sent text = %s, want 'Hello from bot'", received.Text.Body)
	}
}

func TestSendTextMessage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(SendResponse{Error: &APIError{Code: 131030, Message: "Recipient not in allowed list"}})
	}))
	defer server.Close()

	client := NewClient("token", "1")
	client.SetGraphAPIBase(server.URL)

	if _, err := client.SendTextMessage(context.Background(), "1", "hi"); err == nil {
		t.Fatal("expected error")
	}
}
