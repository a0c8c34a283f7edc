package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/studyvisa-ai-platform/internal/students"
)

type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const applicationColumns = `id, student_id, country, status, COALESCE(university, ''), COALESCE(course, ''), created_at, updated_at`

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db     db
	policy DedupePolicy
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool, policy DedupePolicy) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return newPostgresRepositoryWithExec(pool, policy)
}

func newPostgresRepositoryWithExec(exec db, policy DedupePolicy) *PostgresRepository {
	if exec == nil {
		panic("leads: exec required")
	}
	if policy == "" {
		policy = DedupeReuseCurrent
	}
	return &PostgresRepository{db: exec, policy: policy}
}

// CreateLead runs in one transaction. The student upsert holds the student's
// row lock until commit, so concurrent selections for one student serialize.
func (r *PostgresRepository) CreateLead(ctx context.Context, identity, channel, country string) (*Application, bool, error) {
	identity = strings.TrimSpace(identity)
	country = strings.TrimSpace(country)
	if identity == "" {
		return nil, false, students.ErrIdentityRequired
	}
	if country == "" {
		return nil, false, ErrCountryRequired
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("leads: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var studentID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO students (external_id, channel)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING id
	`, identity, channel).Scan(&studentID); err != nil {
		return nil, false, fmt.Errorf("leads: ensure student: %w", err)
	}

	if r.policy == DedupeReuseCurrent {
		current, err := scanApplication(tx.QueryRow(ctx, `
			SELECT `+applicationColumns+`
			FROM visa_applications
			WHERE student_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		`, studentID))
		if err != nil && !errors.Is(err, ErrLeadNotFound) {
			return nil, false, fmt.Errorf("leads: current application: %w", err)
		}
		if r.policy.reusable(current, country) {
			touched, err := scanApplication(tx.QueryRow(ctx, `
				UPDATE visa_applications SET updated_at = NOW()
				WHERE id = $1
				RETURNING `+applicationColumns, current.ID))
			if err != nil {
				return nil, false, fmt.Errorf("leads: touch application: %w", err)
			}
			if err := tx.Commit(ctx); err != nil {
				return nil, false, fmt.Errorf("leads: commit: %w", err)
			}
			return touched, false, nil
		}
	}

	app, err := scanApplication(tx.QueryRow(ctx, `
		INSERT INTO visa_applications (student_id, country, status)
		VALUES ($1, $2, $3)
		RETURNING `+applicationColumns, studentID, country, string(StatusNewLead)))
	if err != nil {
		return nil, false, fmt.Errorf("leads: insert failed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("leads: commit: %w", err)
	}
	return app, true, nil
}

// GetByID fetches a single application.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Application, error) {
	app, err := scanApplication(r.db.QueryRow(ctx, `
		SELECT `+applicationColumns+`
		FROM visa_applications
		WHERE id = $1
	`, id))
	if err != nil && !errors.Is(err, ErrLeadNotFound) {
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return app, err
}

// List returns every application with its student, most recently updated first.
func (r *PostgresRepository) List(ctx context.Context) ([]LeadWithStudent, error) {
	query := `
		SELECT a.id, a.student_id, a.country, a.status, COALESCE(a.university, ''), COALESCE(a.course, ''),
		       a.created_at, a.updated_at,
		       s.external_id, s.channel, COALESCE(s.name, ''), COALESCE(s.email, ''), s.profile_data, s.created_at
		FROM visa_applications a
		JOIN students s ON s.id = a.student_id
		ORDER BY a.updated_at DESC, a.id DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("leads: list query: %w", err)
	}
	defer rows.Close()

	out := []LeadWithStudent{}
	for rows.Next() {
		var (
			item    LeadWithStudent
			status  string
			profile []byte
		)
		a := &item.Application
		s := &item.Student
		if err := rows.Scan(
			&a.ID, &a.StudentID, &a.Country, &status, &a.University, &a.Course, &a.CreatedAt, &a.UpdatedAt,
			&s.ExternalID, &s.Channel, &s.Name, &s.Email, &profile, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("leads: list scan: %w", err)
		}
		a.Status = Status(status)
		s.ID = a.StudentID
		s.ProfileData = map[string]any{}
		if len(profile) > 0 {
			if err := json.Unmarshal(profile, &s.ProfileData); err != nil {
				return nil, fmt.Errorf("leads: decode profile_data: %w", err)
			}
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list rows: %w", err)
	}
	return out, nil
}

// UpdateStatus validates the status before touching the row, so an invalid
// value never mutates anything.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, status string) (*Application, error) {
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	app, err := scanApplication(r.db.QueryRow(ctx, `
		UPDATE visa_applications
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+applicationColumns, id, string(parsed)))
	if err != nil && !errors.Is(err, ErrLeadNotFound) {
		return nil, fmt.Errorf("leads: update status: %w", err)
	}
	return app, err
}

// Current returns the student's most recently created application, or nil.
func (r *PostgresRepository) Current(ctx context.Context, studentID int64) (*students.CurrentApplication, error) {
	app, err := scanApplication(r.db.QueryRow(ctx, `
		SELECT `+applicationColumns+`
		FROM visa_applications
		WHERE student_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, studentID))
	if errors.Is(err, ErrLeadNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leads: current application: %w", err)
	}
	return &students.CurrentApplication{ID: app.ID, Country: app.Country, Status: string(app.Status)}, nil
}

func scanApplication(row pgx.Row) (*Application, error) {
	var (
		app    Application
		status string
	)
	if err := row.Scan(
		&app.ID,
		&app.StudentID,
		&app.Country,
		&status,
		&app.University,
		&app.Course,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	app.Status = Status(status)
	return &app, nil
}
