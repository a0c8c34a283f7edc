package leads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/studyvisa-ai-platform/internal/chatlog"
	"github.com/wolfman30/studyvisa-ai-platform/internal/students"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

func newTestRouter(t *testing.T) (http.Handler, *InMemoryRepository, *chatlog.InMemoryRepository) {
	t.Helper()
	studentRepo := students.NewInMemoryRepository()
	repo := NewInMemoryRepository(studentRepo, DedupeReuseCurrent)
	clock := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	logs := chatlog.NewInMemoryRepository()
	handler := NewHandler(repo, logs, logging.Default())

	r := chi.NewRouter()
	r.Get("/api/leads/", handler.ListLeads)
	r.Patch("/api/leads/{id}", handler.UpdateStatus)
	r.Get("/api/leads/{student_id}/history", handler.History)
	return r, repo, logs
}

func TestListLeads_OrderedByUpdatedAt(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	ctx := context.Background()

	first, _, err := repo.CreateLead(ctx, "923001", "whatsapp", "Canada")
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if _, _, err := repo.CreateLead(ctx, "923002", "whatsapp", "UK"); err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, first.ID, "docs_pending"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leads/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp []LeadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(resp))
	}
	if resp[0].ID != first.ID || resp[0].Status != StatusDocsPending {
		t.Errorf("expected most recently updated lead first, got %#v", resp[0])
	}
	if resp[0].Student.WhatsAppID != "923001" {
		t.Errorf("expected embedded student identity, got %q", resp[0].Student.WhatsAppID)
	}
}

func TestUpdateStatus_Success(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	app, _, err := repo.CreateLead(context.Background(), "923001", "whatsapp", "USA")
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/leads/"+itoa(app.ID), strings.NewReader(`{"status":"applied"}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "success" || body["new_status"] != "applied" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestUpdateStatus_InvalidStatusLeavesRowUnchanged(t *testing.T) {
	router, repo, _ := newTestRouter(t)
	app, _, err := repo.CreateLead(context.Background(), "923001", "whatsapp", "USA")
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/leads/"+itoa(app.ID), strings.NewReader(`{"status":"on_hold"}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid status. Must be one of [new_lead, docs_pending") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	stored, err := repo.GetByID(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if stored.Status != StatusNewLead {
		t.Errorf("expected status unchanged, got %s", stored.Status)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/leads/999", strings.NewReader(`{"status":"applied"}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if !strings.Contains(w.Body.String(), "Lead not found") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestHistory_ReturnsTranscript(t *testing.T) {
	router, _, logs := newTestRouter(t)
	ctx := context.Background()
	if _, err := logs.Append(ctx, 1, chatlog.SenderUser, "Hi"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := logs.Append(ctx, 1, chatlog.SenderBot, "Welcome"); err != nil {
		t.Fatalf("append: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/leads/1/history", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var items []HistoryItem
	if err := json.NewDecoder(w.Body).Decode(&items); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(items) != 2 || items[0].Sender != chatlog.SenderUser || items[1].Message != "Welcome" {
		t.Errorf("unexpected history: %#v", items)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
