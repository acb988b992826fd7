package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/api/middleware"
	"github.com/electrix/tracker/internal/api/templates"
	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/service"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Sends a viewer whose backend session is no longer valid to the login page.
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the browser.
//   - Renders the error page with a localized message.
func NewHTTPErrorHandler(cookies middleware.Cookies, log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if errors.Is(err, domain.ErrUnauthenticated) {
			cookies.Clear(c)
			_ = c.Redirect(http.StatusSeeOther, identity.RouteLogin)
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		page := templates.Page{
			Title:    errorTitle(code),
			Identity: identity.FromContext(c.Request().Context()),
			Path:     c.Request().URL.Path,
			Flash:    msg,
		}
		if rerr := c.Render(code, templates.PageError, page); rerr != nil {
			log.Error().Err(rerr).Msg("failed to render error page")
			_ = c.String(code, msg)
		}
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, CSRF, body limit, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusBadRequest:
			return he.Code, "La solicitud no es válida."
		case http.StatusNotFound:
			return he.Code, "La página que buscas no existe."
		case http.StatusRequestEntityTooLarge:
			return he.Code, "El archivo es demasiado grande."
		case http.StatusForbidden:
			return he.Code, "El formulario expiró. Recarga la página e inténtalo de nuevo."
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, service.UserMessage(err)
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, service.UserMessage(err)
	case errors.Is(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, service.UserMessage(err)
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, service.UserMessage(err)
}

func errorTitle(code int) string {
	switch code {
	case http.StatusNotFound:
		return "Página no encontrada"
	case http.StatusForbidden:
		return "Acceso denegado"
	case http.StatusServiceUnavailable:
		return "Servicio no disponible"
	default:
		return "Error"
	}
}
