package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const columns = `id, student_id, date_time, status, COALESCE(notes, ''), created_at`

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithExec(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Request(ctx context.Context, studentID int64, notes string) (*Appointment, error) {
	appt, err := scan(r.db.QueryRow(ctx, `
		INSERT INTO appointments (student_id, status, notes)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING `+columns, studentID, string(StatusScheduled), notes))
	if err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) ListByStudent(ctx context.Context, studentID int64) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+columns+`
		FROM appointments
		WHERE student_id = $1
		ORDER BY created_at DESC, id DESC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list query: %w", err)
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		appt, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: list scan: %w", err)
		}
		out = append(out, *appt)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, status string) (*Appointment, error) {
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	appt, err := scan(r.db.QueryRow(ctx, `
		UPDATE appointments SET status = $2
		WHERE id = $1
		RETURNING `+columns, id, string(parsed)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: update status: %w", err)
	}
	return appt, nil
}

func scan(row pgx.Row) (*Appointment, error) {
	var (
		appt     Appointment
		dateTime *time.Time
		status   string
	)
	if err := row.Scan(&appt.ID, &appt.StudentID, &dateTime, &status, &appt.Notes, &appt.CreatedAt); err != nil {
		return nil, err
	}
	appt.DateTime = dateTime
	appt.Status = Status(status)
	return &appt, nil
}
