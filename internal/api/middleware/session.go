package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
)

// SessionCookie carries the browser session id.
const SessionCookie = "electrix_session"

// Login redirect reasons.
const (
	ReasonDisabled  = "disabled"
	ReasonNoProfile = "no_profile"
)

// SessionResolver turns a browser session id into the current viewer.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (identity.Identity, error)
}

// Cookies writes and clears the session cookie.
type Cookies struct {
	Secure bool
	TTL    time.Duration
}

func (k Cookies) Set(c echo.Context, sessionID string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(k.TTL.Seconds()),
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (k Cookies) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session resolves the viewer once per request and stores it in the request
// context. Nothing downstream writes the identity again.
//
// A disabled account or one without a profile has its session terminated
// and is sent to the login page with the reason. A session store failure
// leaves the viewer in the loading state.
func Session(resolver SessionResolver, cookies Cookies, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var sid string
			if ck, err := c.Cookie(SessionCookie); err == nil {
				sid = ck.Value
			}

			ctx := c.Request().Context()
			id, err := resolver.Resolve(ctx, sid)
			switch {
			case errors.Is(err, domain.ErrAccountDisabled):
				cookies.Clear(c)
				return c.Redirect(http.StatusSeeOther, identity.RouteLogin+"?reason="+ReasonDisabled)
			case errors.Is(err, domain.ErrProfileMissing):
				cookies.Clear(c)
				return c.Redirect(http.StatusSeeOther, identity.RouteLogin+"?reason="+ReasonNoProfile)
			case err != nil:
				log.Warn().Err(err).Msg("session could not be resolved")
				id = identity.Identity{State: identity.Loading}
			}

			if sid != "" && id.State == identity.Unauthenticated {
				cookies.Clear(c)
			}

			c.SetRequest(c.Request().WithContext(identity.WithIdentity(ctx, id)))
			return next(c)
		}
	}
}
