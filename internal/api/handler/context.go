package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/electrix/tracker/internal/api/templates"
	"github.com/electrix/tracker/internal/core/identity"
)

// viewer returns the identity resolved by the Session middleware.
func viewer(c echo.Context) identity.Identity {
	return identity.FromContext(c.Request().Context())
}

// newPage fills the data every template needs. Each render gets a fresh
// nonce for the double-submit guard.
func newPage(c echo.Context, title string, data any) templates.Page {
	csrf, _ := c.Get(echomiddleware.DefaultCSRFConfig.ContextKey).(string)
	return templates.Page{
		Title:    title,
		Identity: viewer(c),
		CSRF:     csrf,
		Nonce:    uuid.NewString(),
		Path:     c.Request().URL.Path,
		Data:     data,
	}
}

func seeOther(c echo.Context, location string) error {
	return c.Redirect(http.StatusSeeOther, location)
}

// Loading renders the blocking placeholder shown while the viewer's profile
// cannot be fetched. It never decides access.
func Loading(c echo.Context) error {
	c.Response().Header().Set("Retry-After", "2")
	return c.Render(http.StatusServiceUnavailable, templates.PageLoading, newPage(c, "Cargando", nil))
}

// bindForm binds and validates a screen form. A form that is incomplete is
// not an error on these screens: the action is skipped.
func bindForm(c echo.Context, form any) bool {
	if err := c.Bind(form); err != nil {
		return false
	}
	return c.Validate(form) == nil
}
