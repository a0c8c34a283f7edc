package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/studyvisa-ai-platform/internal/chatlog"
	"github.com/wolfman30/studyvisa-ai-platform/internal/http/respond"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

type historyReader interface {
	History(ctx context.Context, studentID int64) ([]chatlog.Entry, error)
}

// Handler handles HTTP requests for leads
type Handler struct {
	repo    Repository
	history historyReader
	logger  *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(repo Repository, history historyReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:    repo,
		history: history,
		logger:  logger,
	}
}

// StudentSummary is the student block embedded in each listed lead.
type StudentSummary struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	WhatsAppID  string         `json:"whatsapp_id"`
	Channel     string         `json:"channel"`
	Email       string         `json:"email"`
	ProfileData map[string]any `json:"profile_data"`
}

// LeadResponse is one row of GET /api/leads/.
type LeadResponse struct {
	ID        int64          `json:"id"`
	StudentID int64          `json:"student_id"`
	Country   string         `json:"country"`
	Status    Status         `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Student   StudentSummary `json:"student"`
}

// HistoryItem is one row of GET /api/leads/{id}/history.
type HistoryItem struct {
	Sender    chatlog.Sender `json:"sender"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// ListLeads handles GET /api/leads/ requests
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		respond.InternalError(w, err)
		return
	}

	resp := make([]LeadResponse, 0, len(items))
	for _, item := range items {
		profile := item.Student.ProfileData
		if profile == nil {
			profile = map[string]any{}
		}
		resp = append(resp, LeadResponse{
			ID:        item.Application.ID,
			StudentID: item.Application.StudentID,
			Country:   item.Application.Country,
			Status:    item.Application.Status,
			CreatedAt: item.Application.CreatedAt,
			UpdatedAt: item.Application.UpdatedAt,
			Student: StudentSummary{
				ID:          item.Student.ID,
				Name:        item.Student.Name,
				WhatsAppID:  item.Student.ExternalID,
				Channel:     item.Student.Channel,
				Email:       item.Student.Email,
				ProfileData: profile,
			},
		})
	}
	respond.JSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /api/leads/{id} requests
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "Lead not found")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	app, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, ErrInvalidStatus):
		respond.Error(w, http.StatusBadRequest, "Invalid status. Must be one of "+statusList())
		return
	case errors.Is(err, ErrLeadNotFound):
		respond.Error(w, http.StatusNotFound, "Lead not found")
		return
	case err != nil:
		h.logger.Error("failed to update lead status", "error", err, "lead_id", id)
		respond.InternalError(w, err)
		return
	}

	h.logger.Info("lead status updated", "lead_id", app.ID, "status", app.Status)
	respond.JSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"new_status": string(app.Status),
	})
}

// History handles GET /api/leads/{id}/history, where id is the student id.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "student_id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid student id")
		return
	}

	entries, err := h.history.History(r.Context(), studentID)
	if err != nil {
		h.logger.Error("failed to load chat history", "error", err, "student_id", studentID)
		respond.InternalError(w, err)
		return
	}

	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryItem{Sender: e.Sender, Message: e.Message, Timestamp: e.CreatedAt})
	}
	respond.JSON(w, http.StatusOK, items)
}

func statusList() string {
	names := make([]string, len(Statuses))
	for i, s := range Statuses {
		names[i] = string(s)
	}
	return "[" + strings.Join(names, ", ") + "]"
}
