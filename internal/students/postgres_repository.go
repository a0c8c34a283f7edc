package students

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores students in the relational database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("students: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithExec(db querier) *PostgresRepository {
	if db == nil {
		panic("students: exec required")
	}
	return &PostgresRepository{db: db}
}

// GetOrCreate upserts on external_id so concurrent first contacts from the
// same identity land on one row. The no-op DO UPDATE makes RETURNING yield
// the existing row; xmax = 0 only holds for a freshly inserted tuple.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, identity, channel, displayName string) (*Student, bool, error) {
	identity = normalizeIdentity(identity)
	if identity == "" {
		return nil, false, ErrIdentityRequired
	}
	query := `
		INSERT INTO students (external_id, channel, name)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING id, external_id, channel, COALESCE(name, ''), COALESCE(email, ''), profile_data, created_at, (xmax = 0) AS created
	`
	var (
		s       Student
		profile []byte
		created bool
	)
	if err := r.db.QueryRow(ctx, query, identity, channel, displayName).Scan(
		&s.ID,
		&s.ExternalID,
		&s.Channel,
		&s.Name,
		&s.Email,
		&profile,
		&s.CreatedAt,
		&created,
	); err != nil {
		return nil, false, fmt.Errorf("students: upsert failed: %w", err)
	}
	if err := decodeProfile(profile, &s); err != nil {
		return nil, false, err
	}
	return &s, created, nil
}

// GetByID fetches a student by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Student, error) {
	query := `
		SELECT id, external_id, channel, COALESCE(name, ''), COALESCE(email, ''), profile_data, created_at
		FROM students
		WHERE id = $1
	`
	var (
		s       Student
		profile []byte
	)
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.ExternalID,
		&s.Channel,
		&s.Name,
		&s.Email,
		&profile,
		&s.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("students: select failed: %w", err)
	}
	if err := decodeProfile(profile, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ProfileView resolves (creating if needed) the student and attaches the most
// recently created application.
func (r *PostgresRepository) ProfileView(ctx context.Context, identity, channel, displayName string) (ProfileView, error) {
	s, created, err := r.GetOrCreate(ctx, identity, channel, displayName)
	if err != nil {
		return ProfileView{}, err
	}
	current, err := r.Current(ctx, s.ID)
	if err != nil {
		return ProfileView{}, err
	}
	view := NewProfileView(s, current)
	view.CreatedNew = created
	return view, nil
}

// Current returns the student's most recently created application, or nil.
func (r *PostgresRepository) Current(ctx context.Context, studentID int64) (*CurrentApplication, error) {
	query := `
		SELECT id, country, status
		FROM visa_applications
		WHERE student_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var app CurrentApplication
	if err := r.db.QueryRow(ctx, query, studentID).Scan(&app.ID, &app.Country, &app.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("students: current application: %w", err)
	}
	return &app, nil
}

// Update merges patch.Profile into profile_data (keys overwrite, others kept)
// and overrides name/email when set. Returns false for an unknown identity.
func (r *PostgresRepository) Update(ctx context.Context, identity string, patch Patch) (bool, error) {
	identity = normalizeIdentity(identity)
	profile := patch.Profile
	if profile == nil {
		profile = map[string]any{}
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return false, fmt.Errorf("students: marshal profile patch: %w", err)
	}
	query := `
		UPDATE students
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    profile_data = profile_data || $4::jsonb
		WHERE external_id = $1
	`
	tag, err := r.db.Exec(ctx, query, identity, patch.Name, patch.Email, string(data))
	if err != nil {
		return false, fmt.Errorf("students: update failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func decodeProfile(raw []byte, s *Student) error {
	s.ProfileData = map[string]any{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &s.ProfileData); err != nil {
		return fmt.Errorf("students: decode profile_data: %w", err)
	}
	return nil
}
