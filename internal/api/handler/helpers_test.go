package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/electrix/tracker/internal/api/templates"
	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	r, err := templates.New()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	e := echo.New()
	e.Renderer = r
	e.Validator = NewValidator()
	return e
}

func signedIn(role domain.Role) identity.Identity {
	return identity.Identity{
		State:   identity.Authenticated,
		Session: &domain.Session{ID: "sid"},
		Profile: &domain.Profile{ID: "me", FullName: "Ana", Role: role, Active: true},
	}
}

// request builds a context for method and target carrying id. A non-nil body
// is sent as a urlencoded form.
func request(e *echo.Echo, method, target string, body io.Reader, id identity.Identity) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	req = req.WithContext(identity.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %s, got %s", location, got)
	}
}
