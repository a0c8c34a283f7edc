// Package analytics serves the dashboard's aggregate counters and the global chat stream.
package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/studyvisa-ai-platform/internal/leads"
)

// Counts are the relational aggregates shown on the dashboard header.
type Counts struct {
	TotalLeads         int64
	ApprovedVisas      int64
	ActiveApplications int64
}

// Counter computes Counts from the backing store.
type Counter interface {
	Counts(ctx context.Context) (Counts, error)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCounter reads Counts with one round trip.
type PostgresCounter struct {
	db querier
}

// NewPostgresCounter initializes a counter backed by pgxpool.
func NewPostgresCounter(pool *pgxpool.Pool) *PostgresCounter {
	if pool == nil {
		panic("analytics: pgx pool required")
	}
	return &PostgresCounter{db: pool}
}

func newPostgresCounterWithExec(db querier) *PostgresCounter {
	if db == nil {
		panic("analytics: exec required")
	}
	return &PostgresCounter{db: db}
}

func (c *PostgresCounter) Counts(ctx context.Context) (Counts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM students),
			(SELECT COUNT(*) FROM visa_applications WHERE status = $1),
			(SELECT COUNT(*) FROM visa_applications WHERE status <> $2)
	`
	var out Counts
	err := c.db.QueryRow(ctx, query, string(leads.StatusApproved), string(leads.StatusRejected)).
		Scan(&out.TotalLeads, &out.ApprovedVisas, &out.ActiveApplications)
	if err != nil {
		return Counts{}, fmt.Errorf("analytics: counts: %w", err)
	}
	return out, nil
}

type studentCounter interface {
	Count(ctx context.Context) (int64, error)
}

type leadLister interface {
	List(ctx context.Context) ([]leads.LeadWithStudent, error)
}

// MemoryCounter derives Counts from the in-memory repositories.
type MemoryCounter struct {
	students studentCounter
	leads    leadLister
}

func NewMemoryCounter(studentRepo studentCounter, leadRepo leadLister) *MemoryCounter {
	if studentRepo == nil || leadRepo == nil {
		panic("analytics: repositories required")
	}
	return &MemoryCounter{students: studentRepo, leads: leadRepo}
}

func (c *MemoryCounter) Counts(ctx context.Context) (Counts, error) {
	total, err := c.students.Count(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("analytics: count students: %w", err)
	}
	items, err := c.leads.List(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("analytics: list leads: %w", err)
	}
	out := Counts{TotalLeads: total}
	for _, item := range items {
		switch item.Application.Status {
		case leads.StatusApproved:
			out.ApprovedVisas++
			out.ActiveApplications++
		case leads.StatusRejected:
		default:
			out.ActiveApplications++
		}
	}
	return out, nil
}
