package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var appColumns = []string{"id", "student_id", "country", "status", "university", "course", "created_at", "updated_at"}

func TestPostgresCreateLead_InsertsWhenNoCurrent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock, DedupeReuseCurrent)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("923001", "whatsapp").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectQuery("FROM visa_applications").
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows(appColumns))
	mock.ExpectQuery("INSERT INTO visa_applications").
		WithArgs(int64(4), "Canada", "new_lead").
		WillReturnRows(pgxmock.NewRows(appColumns).AddRow(int64(10), int64(4), "Canada", "new_lead", "", "", now, now))
	mock.ExpectCommit()

	app, created, err := repo.CreateLead(context.Background(), "923001", "whatsapp", "Canada")
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if !created || app.ID != 10 || app.Status != StatusNewLead {
		t.Fatalf("unexpected result created=%v app=%#v", created, app)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreateLead_ReusesOpenSameCountry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock, DedupeReuseCurrent)
	created := time.Now().Add(-time.Hour).UTC()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("923001", "whatsapp").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectQuery("FROM visa_applications").
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows(appColumns).AddRow(int64(10), int64(4), "Canada", "docs_pending", "", "", created, created))
	mock.ExpectQuery("UPDATE visa_applications SET updated_at").
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(appColumns).AddRow(int64(10), int64(4), "Canada", "docs_pending", "", "", created, now))
	mock.ExpectCommit()

	app, isNew, err := repo.CreateLead(context.Background(), "923001", "whatsapp", "canada")
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if isNew || app.ID != 10 {
		t.Fatalf("expected reuse of lead 10, got created=%v app=%#v", isNew, app)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCreateLead_AppendSkipsLookup(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock, DedupeAppend)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("923001", "telegram").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(4)))
	mock.ExpectQuery("INSERT INTO visa_applications").
		WithArgs(int64(4), "UK", "new_lead").
		WillReturnRows(pgxmock.NewRows(appColumns).AddRow(int64(11), int64(4), "UK", "new_lead", "", "", now, now))
	mock.ExpectCommit()

	if _, created, err := repo.CreateLead(context.Background(), "923001", "telegram", "UK"); err != nil || !created {
		t.Fatalf("expected insert, created=%v err=%v", created, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock, DedupeReuseCurrent)
	now := time.Now().UTC()

	if _, err := repo.UpdateStatus(context.Background(), 10, "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	mock.ExpectQuery("UPDATE visa_applications").
		WithArgs(int64(10), "approved").
		WillReturnRows(pgxmock.NewRows(appColumns).AddRow(int64(10), int64(4), "UK", "approved", "", "", now, now))
	app, err := repo.UpdateStatus(context.Background(), 10, "approved")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if app.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", app.Status)
	}

	mock.ExpectQuery("UPDATE visa_applications").
		WithArgs(int64(404), "applied").
		WillReturnRows(pgxmock.NewRows(appColumns))
	if _, err := repo.UpdateStatus(context.Background(), 404, "applied"); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithExec(mock, DedupeReuseCurrent)
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "student_id", "country", "status", "university", "course", "created_at", "updated_at",
		"external_id", "channel", "name", "email", "profile_data", "s_created_at",
	}).AddRow(int64(10), int64(4), "UK", "applied", "", "", now, now,
		"923001", "whatsapp", "Sara Khan", "", []byte(`{"age":22}`), now)
	mock.ExpectQuery("JOIN students").WillReturnRows(rows)

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(list))
	}
	if list[0].Student.Name != "Sara Khan" || list[0].Student.ID != 4 {
		t.Fatalf("unexpected student: %#v", list[0].Student)
	}
	if list[0].Student.ProfileData["age"] != float64(22) {
		t.Fatalf("unexpected profile: %#v", list[0].Student.ProfileData)
	}
}
