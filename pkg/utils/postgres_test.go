package utils

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestHealthCheck_Pings(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()
	if err := HealthCheck(context.Background(), db, time.Second); err != nil {
		t.Fatalf("HealthCheck() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestHealthCheck_ReportsMissingTable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectQuery(`SELECT to_regclass`).
		WithArgs("auth_audit_events").
		WillReturnRows(sqlmock.NewRows([]string{"ok"}).AddRow(false))

	err = HealthCheck(context.Background(), db, time.Second, "auth_audit_events")
	if err == nil || !strings.Contains(err.Error(), "auth_audit_events missing") {
		t.Fatalf("expected missing table error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestHealthCheck_TablePresent(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectQuery(`SELECT to_regclass`).
		WithArgs("auth_audit_events").
		WillReturnRows(sqlmock.NewRows([]string{"ok"}).AddRow(true))

	if err := HealthCheck(context.Background(), db, time.Second, "auth_audit_events"); err != nil {
		t.Fatalf("HealthCheck() error: %v", err)
	}
}

func TestPoolDefaults(t *testing.T) {
	p := PostgresPoolConfig{MaxIdleConns: 50}.withDefaults()
	if p.MaxOpenConns != 4 || p.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if p.MaxIdleConns != p.MaxOpenConns {
		t.Fatalf("idle conns must not exceed open conns: %+v", p)
	}
	if p.ApplicationName != "insights-dashboard" {
		t.Fatalf("unexpected application name %q", p.ApplicationName)
	}
}

func TestParsePostgresDSN_SetsApplicationName(t *testing.T) {
	pool := PostgresPoolConfig{}.withDefaults()
	cc, err := parsePostgresDSN("host=localhost port=5432 user=u password=secret dbname=d sslmode=disable", pool)
	if err != nil {
		t.Fatalf("parsePostgresDSN() error: %v", err)
	}
	if got := cc.RuntimeParams["application_name"]; got != "insights-dashboard" {
		t.Fatalf("application_name = %q", got)
	}

	cc, err = parsePostgresDSN("host=localhost user=u dbname=d sslmode=disable application_name=ops", pool)
	if err != nil {
		t.Fatalf("parsePostgresDSN() error: %v", err)
	}
	if got := cc.RuntimeParams["application_name"]; got != "ops" {
		t.Fatalf("explicit application_name overwritten: %q", got)
	}
}

func TestParsePostgresDSN_ErrorHidesSecret(t *testing.T) {
	_, err := parsePostgresDSN("postgres://u:hunter2@[::1", PostgresPoolConfig{})
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if strings.Contains(err.Error(), "hunter2") {
		t.Fatalf("error leaks password: %v", err)
	}
}
