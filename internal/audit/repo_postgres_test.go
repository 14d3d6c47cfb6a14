package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNewPostgresRepo_EnsuresSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS auth_audit_events").WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := NewPostgresRepo(context.Background(), db); err != nil {
		t.Fatalf("NewPostgresRepo() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestPostgresRepo_AppendAndRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS auth_audit_events").WillReturnResult(sqlmock.NewResult(0, 0))
	repo, err := NewPostgresRepo(context.Background(), db)
	if err != nil {
		t.Fatalf("NewPostgresRepo() error: %v", err)
	}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO auth_audit_events").
		WithArgs("e1", "t1", "session_refreshed", "c@example.com", "10.0.0.1", "", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Append(context.Background(), Event{
		ID:         "e1",
		TenantID:   "t1",
		Type:       EventTypeSessionRefreshed,
		ActorEmail: "c@example.com",
		IPAddress:  "10.0.0.1",
		CreatedAt:  now,
	})
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "type", "actor_email", "ip_address", "message", "created_at"}).
		AddRow("e1", "t1", "session_refreshed", "c@example.com", "10.0.0.1", "", now)
	mock.ExpectQuery("SELECT id, tenant_id, type, actor_email, ip_address, message, created_at FROM auth_audit_events").
		WithArgs("t1", 50).
		WillReturnRows(rows)

	evs, err := repo.Recent(context.Background(), "t1", 0)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(evs) != 1 || evs[0].Type != EventTypeSessionRefreshed || evs[0].ActorEmail != "c@example.com" {
		t.Fatalf("unexpected events: %+v", evs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
