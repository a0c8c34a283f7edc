package students

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Repository is the profile store.
type Repository interface {
	GetOrCreate(ctx context.Context, identity, channel, displayName string) (*Student, bool, error)
	GetByID(ctx context.Context, id int64) (*Student, error)
	ProfileView(ctx context.Context, identity, channel, displayName string) (ProfileView, error)
	Update(ctx context.Context, identity string, patch Patch) (bool, error)
}

// ApplicationSource resolves a student's current application for in-memory profile views.
type ApplicationSource interface {
	Current(ctx context.Context, studentID int64) (*CurrentApplication, error)
}

// InMemoryRepository keeps students in a map. Used by tests and local runs without a database.
type InMemoryRepository struct {
	mu         sync.RWMutex
	byIdentity map[string]*Student
	byID       map[int64]*Student
	nextID     int64
	apps       ApplicationSource
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byIdentity: make(map[string]*Student),
		byID:       make(map[int64]*Student),
	}
}

// SetApplicationSource wires the lead ledger used to compute profile views.
func (r *InMemoryRepository) SetApplicationSource(src ApplicationSource) {
	r.mu.Lock()
	r.apps = src
	r.mu.Unlock()
}

func (r *InMemoryRepository) GetOrCreate(ctx context.Context, identity, channel, displayName string) (*Student, bool, error) {
	identity = normalizeIdentity(identity)
	if identity == "" {
		return nil, false, ErrIdentityRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.byIdentity[identity]; ok {
		return cloneStudent(s), false, nil
	}
	r.nextID++
	s := &Student{
		ID:          r.nextID,
		ExternalID:  identity,
		Channel:     channel,
		Name:        displayName,
		ProfileData: map[string]any{},
		CreatedAt:   time.Now().UTC(),
	}
	r.byIdentity[identity] = s
	r.byID[s.ID] = s
	return cloneStudent(s), true, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, ErrStudentNotFound
	}
	return cloneStudent(s), nil
}

func (r *InMemoryRepository) ProfileView(ctx context.Context, identity, channel, displayName string) (ProfileView, error) {
	s, created, err := r.GetOrCreate(ctx, identity, channel, displayName)
	if err != nil {
		return ProfileView{}, err
	}
	r.mu.RLock()
	src := r.apps
	r.mu.RUnlock()

	var current *CurrentApplication
	if src != nil {
		if current, err = src.Current(ctx, s.ID); err != nil {
			return ProfileView{}, err
		}
	}
	view := NewProfileView(s, current)
	view.CreatedNew = created
	return view, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, identity string, patch Patch) (bool, error) {
	identity = normalizeIdentity(identity)
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byIdentity[identity]
	if !ok {
		return false, nil
	}
	if patch.Name != nil {
		s.Name = *patch.Name
	}
	if patch.Email != nil {
		s.Email = *patch.Email
	}
	if s.ProfileData == nil {
		s.ProfileData = map[string]any{}
	}
	maps.Copy(s.ProfileData, patch.Profile)
	return true, nil
}

func cloneStudent(s *Student) *Student {
	out := *s
	out.ProfileData = maps.Clone(s.ProfileData)
	if out.ProfileData == nil {
		out.ProfileData = map[string]any{}
	}
	return &out
}

// Count returns the number of known students.
func (r *InMemoryRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}
