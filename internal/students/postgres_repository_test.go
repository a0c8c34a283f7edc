package students

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var studentColumns = []string{"id", "external_id", "channel", "name", "email", "profile_data", "created_at", "created"}

func TestPostgresGetOrCreate_NewStudent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("923001234567", "whatsapp", "Ali").
		WillReturnRows(pgxmock.NewRows(studentColumns).
			AddRow(int64(7), "923001234567", "whatsapp", "Ali", "", []byte(`{}`), now, true))

	s, created, err := repo.GetOrCreate(context.Background(), " 923001234567 ", "whatsapp", "Ali")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created {
		t.Fatalf("expected created flag")
	}
	if s.ID != 7 || s.Name != "Ali" {
		t.Fatalf("unexpected student: %#v", s)
	}
	if s.ProfileData == nil || len(s.ProfileData) != 0 {
		t.Fatalf("expected empty profile map, got %#v", s.ProfileData)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetOrCreate_EmptyIdentity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	if _, _, err := repo.GetOrCreate(context.Background(), "   ", "telegram", ""); err != ErrIdentityRequired {
		t.Fatalf("expected ErrIdentityRequired, got %v", err)
	}
}

func TestPostgresProfileView_NoApplication(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("5550001", "telegram", "").
		WillReturnRows(pgxmock.NewRows(studentColumns).
			AddRow(int64(3), "5550001", "telegram", "", "", []byte(`{"age":21}`), now, false))
	mock.ExpectQuery("FROM visa_applications").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "country", "status"}))

	view, err := repo.ProfileView(context.Background(), "5550001", "telegram", "")
	if err != nil {
		t.Fatalf("profile view: %v", err)
	}
	if view.Status != NoApplication || view.HasLead {
		t.Fatalf("expected no application sentinel, got %#v", view)
	}
	if view.Profile["age"] != float64(21) {
		t.Fatalf("expected decoded profile, got %#v", view.Profile)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresProfileView_CurrentApplication(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("5550001", "telegram", "").
		WillReturnRows(pgxmock.NewRows(studentColumns).
			AddRow(int64(3), "5550001", "telegram", "Sara Khan", "", []byte(`{}`), now, false))
	mock.ExpectQuery("FROM visa_applications").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "country", "status"}).AddRow(int64(11), "UK", "docs_pending"))

	view, err := repo.ProfileView(context.Background(), "5550001", "telegram", "")
	if err != nil {
		t.Fatalf("profile view: %v", err)
	}
	if view.Country != "UK" || view.Status != "docs_pending" || view.LeadID != 11 {
		t.Fatalf("unexpected view: %#v", view)
	}
}

func TestPostgresUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	name := "John Doe"
	mock.ExpectExec("UPDATE students").
		WithArgs("923001234567", &name, (*string)(nil), `{"full_name":"John Doe"}`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE students").
		WithArgs("unknown", (*string)(nil), (*string)(nil), `{}`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.Update(context.Background(), "923001234567", Patch{
		Name:    &name,
		Profile: map[string]any{"full_name": "John Doe"},
	})
	if err != nil || !ok {
		t.Fatalf("expected update to succeed, ok=%v err=%v", ok, err)
	}

	ok, err = repo.Update(context.Background(), "unknown", Patch{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected unknown identity to report false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock)
	mock.ExpectQuery("FROM students").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "external_id", "channel", "name", "email", "profile_data", "created_at"}))

	if _, err := repo.GetByID(context.Background(), 99); err != ErrStudentNotFound {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}
