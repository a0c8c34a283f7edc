package leads

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/studyvisa-ai-platform/internal/students"
)

// Repository defines the interface for the lead ledger
type Repository interface {
	// CreateLead ensures the student exists and records a country selection.
	// The bool is false when the policy reused the current application.
	CreateLead(ctx context.Context, identity, channel, country string) (*Application, bool, error)
	GetByID(ctx context.Context, id int64) (*Application, error)
	List(ctx context.Context) ([]LeadWithStudent, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*Application, error)
	Current(ctx context.Context, studentID int64) (*students.CurrentApplication, error)
}

type studentStore interface {
	GetOrCreate(ctx context.Context, identity, channel, displayName string) (*students.Student, bool, error)
	GetByID(ctx context.Context, id int64) (*students.Student, error)
}

// InMemoryRepository is an in-memory Repository over an in-memory student store.
type InMemoryRepository struct {
	mu       sync.RWMutex
	apps     map[int64]*Application
	nextID   int64
	students studentStore
	policy   DedupePolicy
	now      func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository(studentRepo studentStore, policy DedupePolicy) *InMemoryRepository {
	if studentRepo == nil {
		panic("leads: student store required")
	}
	if policy == "" {
		policy = DedupeReuseCurrent
	}
	return &InMemoryRepository{
		apps:     make(map[int64]*Application),
		students: studentRepo,
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) CreateLead(ctx context.Context, identity, channel, country string) (*Application, bool, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return nil, false, ErrCountryRequired
	}
	student, _, err := r.students.GetOrCreate(ctx, identity, channel, "")
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if current := r.currentLocked(student.ID); r.policy.reusable(current, country) {
		current.UpdatedAt = now
		out := *current
		return &out, false, nil
	}

	r.nextID++
	app := &Application{
		ID:        r.nextID,
		StudentID: student.ID,
		Country:   country,
		Status:    StatusNewLead,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.apps[app.ID] = app
	out := *app
	return &out, true, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.apps[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	out := *app
	return &out, nil
}

func (r *InMemoryRepository) List(ctx context.Context) ([]LeadWithStudent, error) {
	r.mu.RLock()
	apps := make([]Application, 0, len(r.apps))
	for _, app := range r.apps {
		apps = append(apps, *app)
	}
	r.mu.RUnlock()

	sort.Slice(apps, func(i, j int) bool {
		if apps[i].UpdatedAt.Equal(apps[j].UpdatedAt) {
			return apps[i].ID > apps[j].ID
		}
		return apps[i].UpdatedAt.After(apps[j].UpdatedAt)
	})

	out := make([]LeadWithStudent, 0, len(apps))
	for _, app := range apps {
		student, err := r.students.GetByID(ctx, app.StudentID)
		if err != nil {
			return nil, err
		}
		out = append(out, LeadWithStudent{Application: app, Student: *student})
	}
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id int64, status string) (*Application, error) {
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	app, ok := r.apps[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	app.Status = parsed
	app.UpdatedAt = r.now()
	out := *app
	return &out, nil
}

func (r *InMemoryRepository) Current(ctx context.Context, studentID int64) (*students.CurrentApplication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app := r.currentLocked(studentID)
	if app == nil {
		return nil, nil
	}
	return &students.CurrentApplication{ID: app.ID, Country: app.Country, Status: string(app.Status)}, nil
}

// currentLocked returns the most recently created application; ids break ties.
func (r *InMemoryRepository) currentLocked(studentID int64) *Application {
	var current *Application
	for _, app := range r.apps {
		if app.StudentID != studentID {
			continue
		}
		if current == nil || app.CreatedAt.After(current.CreatedAt) ||
			(app.CreatedAt.Equal(current.CreatedAt) && app.ID > current.ID) {
			current = app
		}
	}
	return current
}
