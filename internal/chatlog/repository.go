package chatlog

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository is the append-only interaction log.
type Repository interface {
	Append(ctx context.Context, studentID int64, sender Sender, text string) (*Entry, error)
	// History returns a student's full transcript, oldest first.
	History(ctx context.Context, studentID int64) ([]Entry, error)
	// Recent returns the latest limit entries across all students, oldest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	// Tail returns a student's latest n entries, oldest first.
	Tail(ctx context.Context, studentID int64, n int) ([]Entry, error)
	// Since returns entries with id greater than afterID, oldest first.
	Since(ctx context.Context, afterID int64, limit int) ([]Entry, error)
}

// InMemoryRepository stores entries in insertion order.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64
	now     func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{now: func() time.Time { return time.Now().UTC() }}
}

func (r *InMemoryRepository) Append(ctx context.Context, studentID int64, sender Sender, text string) (*Entry, error) {
	if !sender.Valid() {
		return nil, ErrInvalidSender
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry := Entry{
		ID:        r.nextID,
		StudentID: studentID,
		Sender:    sender,
		Message:   text,
		CreatedAt: r.now(),
	}
	r.entries = append(r.entries, entry)
	out := entry
	return &out, nil
}

func (r *InMemoryRepository) History(ctx context.Context, studentID int64) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Entry{}
	for _, e := range r.entries {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	sortChronological(out)
	return out, nil
}

func (r *InMemoryRepository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	r.mu.RLock()
	all := append([]Entry(nil), r.entries...)
	r.mu.RUnlock()

	sortChronological(all)
	return lastN(all, limit), nil
}

func (r *InMemoryRepository) Tail(ctx context.Context, studentID int64, n int) ([]Entry, error) {
	history, err := r.History(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return lastN(history, n), nil
}

func (r *InMemoryRepository) Since(ctx context.Context, afterID int64, limit int) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Entry{}
	for _, e := range r.entries {
		if e.ID > afterID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortChronological(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

func lastN(entries []Entry, n int) []Entry {
	if n <= 0 || len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
