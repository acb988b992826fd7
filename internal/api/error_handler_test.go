package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/api/middleware"
	"github.com/electrix/tracker/internal/api/templates"
	"github.com/electrix/tracker/internal/core/domain"
)

func errorContext(t *testing.T) (*httptest.ResponseRecorder, echo.Context, echo.HTTPErrorHandler) {
	t.Helper()
	r, err := templates.New()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	e := echo.New()
	e.Renderer = r
	req := httptest.NewRequest(http.MethodGet, "/workflow", nil)
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec), NewHTTPErrorHandler(middleware.Cookies{TTL: time.Hour}, zerolog.Nop())
}

func TestErrorHandler_UnauthenticatedGoesToLogin(t *testing.T) {
	rec, c, handle := errorContext(t)
	handle(fmt.Errorf("list clients: %w", domain.ErrUnauthenticated), c)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to login, got %d %s", rec.Code, rec.Header().Get("Location"))
	}
}

func TestErrorHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		want   string
	}{
		{domain.ErrForbidden, http.StatusForbidden, "No tienes permisos"},
		{domain.ErrBackendUnavailable, http.StatusServiceUnavailable, "No se pudo conectar"},
		{echo.ErrNotFound, http.StatusNotFound, "La página que buscas no existe."},
		{errors.New("boom"), http.StatusInternalServerError, "Ocurrió un error inesperado."},
	}
	for _, tc := range cases {
		rec, c, handle := errorContext(t)
		handle(tc.err, c)

		if rec.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), tc.want) {
			t.Fatalf("%v: expected %q in page", tc.err, tc.want)
		}
		if strings.Contains(rec.Body.String(), "boom") {
			t.Fatalf("internal details leaked")
		}
	}
}
