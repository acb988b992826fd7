package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/electrix/tracker/internal/core/identity"
)

// Guard applies the route guard to every request. Redirects use 303 so a
// refused form post turns into a GET. While the viewer is still loading the
// placeholder handler answers instead of the route.
func Guard(placeholder echo.HandlerFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := identity.FromContext(c.Request().Context())
			d := identity.Decide(id, c.Request().URL.Path)
			switch d.Outcome {
			case identity.Redirect:
				return c.Redirect(http.StatusSeeOther, d.Location)
			case identity.Placeholder:
				return placeholder(c)
			}
			return next(c)
		}
	}
}
