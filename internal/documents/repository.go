package documents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists document metadata.
type Repository interface {
	Create(ctx context.Context, applicationID int64, documentType, fileURL string) (*Document, error)
	GetByID(ctx context.Context, id int64) (*Document, error)
	ListByApplication(ctx context.Context, applicationID int64) ([]Document, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*Document, error)
}

// InMemoryRepository keeps documents in a map.
type InMemoryRepository struct {
	mu     sync.RWMutex
	docs   map[int64]*Document
	nextID int64
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{docs: make(map[int64]*Document)}
}

func (r *InMemoryRepository) Create(ctx context.Context, applicationID int64, documentType, fileURL string) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	doc := &Document{
		ID:            r.nextID,
		ApplicationID: applicationID,
		DocumentType:  documentType,
		FileURL:       fileURL,
		Status:        StatusPending,
		UploadedAt:    time.Now().UTC(),
	}
	r.docs[doc.ID] = doc
	out := *doc
	return &out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	out := *doc
	return &out, nil
}

func (r *InMemoryRepository) ListByApplication(ctx context.Context, applicationID int64) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Document{}
	for _, doc := range r.docs {
		if doc.ApplicationID == applicationID {
			out = append(out, *doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id int64, status string) (*Document, error) {
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	doc.Status = parsed
	out := *doc
	return &out, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const columns = `id, application_id, document_type, file_url, status, uploaded_at`

// PostgresRepository stores document metadata in the relational database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("documents: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithExec(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, applicationID int64, documentType, fileURL string) (*Document, error) {
	doc, err := scanDocument(r.db.QueryRow(ctx, `
		INSERT INTO documents (application_id, document_type, file_url, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+columns, applicationID, documentType, fileURL, string(StatusPending)))
	if err != nil {
		return nil, fmt.Errorf("documents: insert failed: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Document, error) {
	doc, err := scanDocument(r.db.QueryRow(ctx, `SELECT `+columns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("documents: select failed: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) ListByApplication(ctx context.Context, applicationID int64) ([]Document, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+columns+`
		FROM documents
		WHERE application_id = $1
		ORDER BY uploaded_at ASC, id ASC
	`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("documents: list query: %w", err)
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("documents: list scan: %w", err)
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, status string) (*Document, error) {
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	doc, err := scanDocument(r.db.QueryRow(ctx, `
		UPDATE documents SET status = $2
		WHERE id = $1
		RETURNING `+columns, id, string(parsed)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("documents: update status: %w", err)
	}
	return doc, nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	var (
		doc    Document
		status string
	)
	if err := row.Scan(&doc.ID, &doc.ApplicationID, &doc.DocumentType, &doc.FileURL, &status, &doc.UploadedAt); err != nil {
		return nil, err
	}
	doc.Status = Status(status)
	return &doc, nil
}
