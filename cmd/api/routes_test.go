package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"insights-dashboard/internal/httpapi"
	"insights-dashboard/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func TestRegisterRoutes_WithoutVerifierSkipsProtectedAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerRoutes(r, httpapi.Handlers{}, nil, nil, logger.Discard())

	for path, want := range map[string]int{
		"/healthz":          http.StatusOK,
		"/api/auth/refresh": http.StatusUnauthorized,
		"/api/me":           http.StatusNotFound,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, w.Code)
		}
	}
}

func TestHealthz_DegradedWithoutAuditTable(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()
	mock.ExpectPing()
	mock.ExpectQuery(`SELECT to_regclass`).
		WithArgs("auth_audit_events").
		WillReturnRows(sqlmock.NewRows([]string{"ok"}).AddRow(false))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerRoutes(r, httpapi.Handlers{}, nil, db, logger.Discard())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
