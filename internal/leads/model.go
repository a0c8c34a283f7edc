package leads

import (
	"strings"
	"time"

	"github.com/wolfman30/studyvisa-ai-platform/internal/students"
)

// Status is the closed set of visa application states. Any status may follow
// any other; only membership is enforced.
type Status string

const (
	StatusNewLead      Status = "new_lead"
	StatusDocsPending  Status = "docs_pending"
	StatusDocsReceived Status = "docs_received"
	StatusApplied      Status = "applied"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
)

// Statuses lists every valid status in pipeline order.
var Statuses = []Status{
	StatusNewLead,
	StatusDocsPending,
	StatusDocsReceived,
	StatusApplied,
	StatusApproved,
	StatusRejected,
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// Valid reports whether s is a member of the enumeration.
func (s Status) Valid() bool {
	for _, candidate := range Statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Terminal reports whether the application has reached a final decision.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Application is a visa application (lead) owned by one student.
type Application struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	Country    string    `json:"country"`
	Status     Status    `json:"status"`
	University string    `json:"university,omitempty"`
	Course     string    `json:"course,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LeadWithStudent pairs an application with its owner for the dashboard list.
type LeadWithStudent struct {
	Application Application
	Student     students.Student
}

// DedupePolicy controls what repeated country selections do.
type DedupePolicy string

const (
	// DedupeAppend always inserts a new application.
	DedupeAppend DedupePolicy = "append"
	// DedupeReuseCurrent reuses the current application when it is for the
	// same country and not terminal.
	DedupeReuseCurrent DedupePolicy = "reuse_current"
)

// ParseDedupePolicy maps a config value to a policy. Empty selects reuse_current.
func ParseDedupePolicy(raw string) (DedupePolicy, error) {
	switch DedupePolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", DedupeReuseCurrent:
		return DedupeReuseCurrent, nil
	case DedupeAppend:
		return DedupeAppend, nil
	default:
		return "", ErrInvalidDedupePolicy
	}
}

// reusable reports whether current should absorb a new selection of country.
func (p DedupePolicy) reusable(current *Application, country string) bool {
	if p != DedupeReuseCurrent || current == nil {
		return false
	}
	return strings.EqualFold(current.Country, country) && !current.Status.Terminal()
}
