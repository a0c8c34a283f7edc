package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/studyvisa-ai-platform/internal/http/respond"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// Handler serves appointment endpoints for the dashboard.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListForStudent handles GET /api/students/{id}/appointments.
func (h *Handler) ListForStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid student id")
		return
	}
	items, err := h.repo.ListByStudent(r.Context(), studentID)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "student_id", studentID)
		respond.InternalError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, items)
}

// UpdateStatus handles PATCH /api/appointments/{id}.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "Appointment not found")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	appt, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, ErrInvalidStatus):
		respond.Error(w, http.StatusBadRequest, "Invalid status. Must be one of [scheduled, completed, cancelled]")
	case errors.Is(err, ErrAppointmentNotFound):
		respond.Error(w, http.StatusNotFound, "Appointment not found")
	case err != nil:
		h.logger.Error("failed to update appointment", "error", err, "appointment_id", id)
		respond.InternalError(w, err)
	default:
		respond.JSON(w, http.StatusOK, appt)
	}
}
