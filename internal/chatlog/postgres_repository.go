package chatlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores chat logs in the relational database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("chatlog: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithExec(db querier) *PostgresRepository {
	if db == nil {
		panic("chatlog: exec required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, studentID int64, sender Sender, text string) (*Entry, error) {
	if !sender.Valid() {
		return nil, ErrInvalidSender
	}
	query := `
		INSERT INTO chat_logs (student_id, sender, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	entry := Entry{StudentID: studentID, Sender: sender, Message: text}
	if err := r.db.QueryRow(ctx, query, studentID, string(sender), text).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("chatlog: insert failed: %w", err)
	}
	return &entry, nil
}

func (r *PostgresRepository) History(ctx context.Context, studentID int64) ([]Entry, error) {
	query := `
		SELECT id, student_id, sender, message, created_at
		FROM chat_logs
		WHERE student_id = $1
		ORDER BY created_at ASC, id ASC
	`
	return r.collect(ctx, "history", false, query, studentID)
}

// Recent reads newest-first with a limit, then flips to chronological order.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, student_id, sender, message, created_at
		FROM chat_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	return r.collect(ctx, "recent", true, query, limit)
}

func (r *PostgresRepository) Tail(ctx context.Context, studentID int64, n int) ([]Entry, error) {
	query := `
		SELECT id, student_id, sender, message, created_at
		FROM chat_logs
		WHERE student_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return r.collect(ctx, "tail", true, query, studentID, n)
}

func (r *PostgresRepository) Since(ctx context.Context, afterID int64, limit int) ([]Entry, error) {
	query := `
		SELECT id, student_id, sender, message, created_at
		FROM chat_logs
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`
	return r.collect(ctx, "since", false, query, afterID, limit)
}

func (r *PostgresRepository) collect(ctx context.Context, op string, reverse bool, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("chatlog: %s query: %w", op, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e      Entry
			sender string
		)
		if err := rows.Scan(&e.ID, &e.StudentID, &sender, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("chatlog: %s scan: %w", op, err)
		}
		e.Sender = Sender(sender)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatlog: %s rows: %w", op, err)
	}
	if reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return entries, nil
}
