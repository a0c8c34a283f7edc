package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/studyvisa-ai-platform/internal/analytics"
	"github.com/wolfman30/studyvisa-ai-platform/internal/appointments"
	"github.com/wolfman30/studyvisa-ai-platform/internal/chatlog"
	appconfig "github.com/wolfman30/studyvisa-ai-platform/internal/config"
	"github.com/wolfman30/studyvisa-ai-platform/internal/database"
	"github.com/wolfman30/studyvisa-ai-platform/internal/documents"
	"github.com/wolfman30/studyvisa-ai-platform/internal/leads"
	"github.com/wolfman30/studyvisa-ai-platform/internal/students"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

// Stores groups the repositories shared by the API and the worker.
type Stores struct {
	Students     students.Repository
	Leads        leads.Repository
	ChatLog      chatlog.Repository
	Appointments appointments.Repository
	Documents    documents.Repository
	Counter      analytics.Counter

	// SQL backs the readiness probe; nil for in-memory stores.
	SQL *sql.DB

	pool *pgxpool.Pool
}

// Persistent reports whether the stores are backed by Postgres.
func (s *Stores) Persistent() bool {
	return s != nil && s.pool != nil
}

// Close releases database handles.
func (s *Stores) Close() {
	if s == nil {
		return
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.SQL != nil {
		_ = s.SQL.Close()
	}
}

// BuildStores opens Postgres-backed repositories, or in-memory ones when
// DATABASE_URL is unset. Pending migrations run first when AutoMigrate is on.
func BuildStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	policy, err := leads.ParseDedupePolicy(cfg.LeadDedupePolicy)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		return NewMemoryStores(policy), nil
	}

	sqlDB, err := database.OpenSQL(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		logger.Info("database migrations applied")
	}
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Info("connected to postgres", "dedupe_policy", policy)
	return &Stores{
		Students:     students.NewPostgresRepository(pool),
		Leads:        leads.NewPostgresRepository(pool, policy),
		ChatLog:      chatlog.NewPostgresRepository(pool),
		Appointments: appointments.NewPostgresRepository(pool),
		Documents:    documents.NewPostgresRepository(pool),
		Counter:      analytics.NewPostgresCounter(pool),
		SQL:          sqlDB,
		pool:         pool,
	}, nil
}

// NewMemoryStores wires the in-memory repositories together.
func NewMemoryStores(policy leads.DedupePolicy) *Stores {
	studentRepo := students.NewInMemoryRepository()
	leadRepo := leads.NewInMemoryRepository(studentRepo, policy)
	studentRepo.SetApplicationSource(leadRepo)
	return &Stores{
		Students:     studentRepo,
		Leads:        leadRepo,
		ChatLog:      chatlog.NewInMemoryRepository(),
		Appointments: appointments.NewInMemoryRepository(),
		Documents:    documents.NewInMemoryRepository(),
		Counter:      analytics.NewMemoryCounter(studentRepo, leadRepo),
	}
}
