package documents

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrDocumentNotFound is returned when no document matches the id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidStatus is returned for statuses other than pending, verified or rejected.
	ErrInvalidStatus = errors.New("invalid document status")

	// ErrStorageDisabled is returned when no documents bucket is configured.
	ErrStorageDisabled = errors.New("document storage is not configured")
)

// Status of a submitted document.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.TrimSpace(raw)); s {
	case StatusPending, StatusVerified, StatusRejected:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Document is a file attached to a visa application.
type Document struct {
	ID            int64     `json:"id"`
	ApplicationID int64     `json:"application_id"`
	DocumentType  string    `json:"document_type"`
	FileURL       string    `json:"file_url"`
	Status        Status    `json:"status"`
	UploadedAt    time.Time `json:"uploaded_at"`
}
