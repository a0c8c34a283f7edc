package documents

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/studyvisa-ai-platform/internal/http/respond"
	"github.com/wolfman30/studyvisa-ai-platform/internal/leads"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

const maxUploadBytes = 10 << 20

type leadLookup interface {
	GetByID(ctx context.Context, id int64) (*leads.Application, error)
}

// Handler serves document endpoints for the dashboard.
type Handler struct {
	repo    Repository
	storage *Storage
	leads   leadLookup
	logger  *logging.Logger
}

func NewHandler(repo Repository, storage *Storage, leadRepo leadLookup, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, storage: storage, leads: leadRepo, logger: logger}
}

// Upload handles POST /api/leads/{id}/documents (multipart: file, document_type).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.resolveLead(w, r)
	if !ok {
		return
	}
	if !h.storage.Enabled() {
		respond.Error(w, http.StatusServiceUnavailable, ErrStorageDisabled.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	docType := strings.TrimSpace(r.FormValue("document_type"))
	if docType == "" {
		respond.Error(w, http.StatusBadRequest, "document_type is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	url, err := h.storage.Put(r.Context(), appID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.logger.Error("failed to store document", "error", err, "application_id", appID)
		respond.InternalError(w, err)
		return
	}
	doc, err := h.repo.Create(r.Context(), appID, docType, url)
	if err != nil {
		h.logger.Error("failed to record document", "error", err, "application_id", appID)
		respond.InternalError(w, err)
		return
	}
	h.logger.Info("document uploaded", "document_id", doc.ID, "application_id", appID, "type", docType)
	respond.JSON(w, http.StatusCreated, doc)
}

// List handles GET /api/leads/{id}/documents.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	appID, ok := h.resolveLead(w, r)
	if !ok {
		return
	}
	docs, err := h.repo.ListByApplication(r.Context(), appID)
	if err != nil {
		h.logger.Error("failed to list documents", "error", err, "application_id", appID)
		respond.InternalError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, docs)
}

// UpdateStatus handles PATCH /api/documents/{id}.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "Document not found")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	doc, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, ErrInvalidStatus):
		respond.Error(w, http.StatusBadRequest, "Invalid status. Must be one of [pending, verified, rejected]")
	case errors.Is(err, ErrDocumentNotFound):
		respond.Error(w, http.StatusNotFound, "Document not found")
	case err != nil:
		h.logger.Error("failed to update document", "error", err, "document_id", id)
		respond.InternalError(w, err)
	default:
		respond.JSON(w, http.StatusOK, doc)
	}
}

// Download handles GET /api/documents/{id}/file by streaming the object from S3.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "Document not found")
		return
	}
	doc, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, ErrDocumentNotFound) {
		respond.Error(w, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		respond.InternalError(w, err)
		return
	}
	body, contentType, err := h.storage.Open(r.Context(), doc.FileURL)
	if errors.Is(err, ErrStorageDisabled) {
		respond.Error(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to open document", "error", err, "document_id", id)
		respond.InternalError(w, err)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("document download interrupted", "error", err, "document_id", id)
	}
}

func (h *Handler) resolveLead(w http.ResponseWriter, r *http.Request) (int64, bool) {
	appID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusNotFound, "Lead not found")
		return 0, false
	}
	if _, err := h.leads.GetByID(r.Context(), appID); err != nil {
		if errors.Is(err, leads.ErrLeadNotFound) {
			respond.Error(w, http.StatusNotFound, "Lead not found")
			return 0, false
		}
		respond.InternalError(w, err)
		return 0, false
	}
	return appID, true
}
