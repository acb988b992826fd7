package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/ports"
)

// NonceField is the hidden form field carrying the per-render nonce.
const NonceField = "_nonce"

// Dedup drops a form post whose nonce was already used in the same session,
// such as a double click or a resubmitted page. The browser is sent back to
// where the form came from. A guard failure lets the request through.
func Dedup(guard ports.SubmissionGuard, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodPost {
				return next(c)
			}
			nonce := c.FormValue(NonceField)
			sid := identity.FromContext(c.Request().Context()).SessionID()
			if nonce == "" || sid == "" {
				return next(c)
			}

			first, err := guard.First(c.Request().Context(), sid, nonce)
			if err != nil {
				log.Warn().Err(err).Msg("submission guard unavailable")
				return next(c)
			}
			if !first {
				log.Info().Str("path", c.Request().URL.Path).Msg("dropping repeated submission")
				return c.Redirect(http.StatusSeeOther, referer(c))
			}
			return next(c)
		}
	}
}

// referer returns the local path of the page that posted the form, or "/".
func referer(c echo.Context) string {
	u, err := url.Parse(c.Request().Referer())
	if err != nil || (u.Host != "" && u.Host != c.Request().Host) || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return u.RequestURI()
}
