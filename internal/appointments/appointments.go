// Package appointments records consultation booking requests.
package appointments

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrInvalidStatus is returned for statuses other than scheduled, completed or cancelled.
	ErrInvalidStatus = errors.New("invalid appointment status")

	// ErrAppointmentNotFound is returned when no appointment matches the id.
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Status of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.TrimSpace(raw)); s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return s, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Appointment is a consultation request. DateTime stays nil until staff
// confirm a slot; the student's free-text preference is kept in Notes.
type Appointment struct {
	ID        int64      `json:"id"`
	StudentID int64      `json:"student_id"`
	DateTime  *time.Time `json:"date_time"`
	Status    Status     `json:"status"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
}

// Repository persists appointments.
type Repository interface {
	Request(ctx context.Context, studentID int64, notes string) (*Appointment, error)
	ListByStudent(ctx context.Context, studentID int64) ([]Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*Appointment, error)
}

// InMemoryRepository keeps appointments in a map.
type InMemoryRepository struct {
	mu     sync.RWMutex
	items  map[int64]*Appointment
	nextID int64
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[int64]*Appointment)}
}

func (r *InMemoryRepository) Request(ctx context.Context, studentID int64, notes string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	appt := &Appointment{
		ID:        r.nextID,
		StudentID: studentID,
		Status:    StatusScheduled,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	}
	r.items[appt.ID] = appt
	out := *appt
	return &out, nil
}

func (r *InMemoryRepository) ListByStudent(ctx context.Context, studentID int64) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Appointment{}
	for _, appt := range r.items {
		if appt.StudentID == studentID {
			out = append(out, *appt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id int64, status string) (*Appointment, error) {
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = parsed
	out := *appt
	return &out, nil
}
