package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/api/middleware"
	"github.com/electrix/tracker/internal/api/templates"
	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
)

type AuthHandler struct {
	authService AuthService
	cookies     middleware.Cookies
	log         zerolog.Logger
}

func NewAuthHandler(authService AuthService, cookies middleware.Cookies, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies, log: log}
}

type loginForm struct {
	RUT      string `form:"rut" validate:"required"`
	Password string `form:"password" validate:"required"`
}

var loginReasons = map[string]string{
	middleware.ReasonDisabled:  "Tu cuenta está desactivada. Contacta a un supervisor.",
	middleware.ReasonNoProfile: "Tu cuenta no tiene un perfil asignado. Contacta a un supervisor.",
}

// LoginPage renders the sign-in form.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	p := newPage(c, "Iniciar sesión", nil)
	p.Flash = loginReasons[c.QueryParam("reason")]
	return c.Render(http.StatusOK, templates.PageLogin, p)
}

// Login authenticates a RUT/password pair and opens a browser session.
func (h *AuthHandler) Login(c echo.Context) error {
	var form loginForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "formulario inválido")
	}
	if err := c.Validate(&form); err != nil {
		return h.loginFailed(c, form, http.StatusUnprocessableEntity, err.Error())
	}

	sess, err := h.authService.SignIn(c.Request().Context(), form.RUT, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return h.loginFailed(c, form, http.StatusUnauthorized, "RUT o contraseña incorrectos")
		case errors.Is(err, domain.ErrAccountDisabled):
			return h.loginFailed(c, form, http.StatusForbidden, loginReasons[middleware.ReasonDisabled])
		case errors.Is(err, domain.ErrProfileMissing):
			return h.loginFailed(c, form, http.StatusForbidden, loginReasons[middleware.ReasonNoProfile])
		case errors.Is(err, domain.ErrBackendUnavailable):
			return h.loginFailed(c, form, http.StatusServiceUnavailable, "No se pudo conectar con el servidor. Intenta nuevamente.")
		}
		return err
	}

	h.cookies.Set(c, sess.ID)
	return seeOther(c, identity.RouteIndex)
}

func (h *AuthHandler) loginFailed(c echo.Context, form loginForm, status int, msg string) error {
	form.Password = ""
	p := newPage(c, "Iniciar sesión", form)
	p.Flash = msg
	return c.Render(status, templates.PageLogin, p)
}

// Logout terminates the session and returns to the login page.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.SignOut(c.Request().Context(), viewer(c).SessionID()); err != nil {
		h.log.Warn().Err(err).Msg("sign-out failed")
	}
	h.cookies.Clear(c)
	return seeOther(c, identity.RouteLogin)
}

// Index sends the viewer to the home of their role. The guard normally
// answers first; this only runs if it let the request through.
func Index(c echo.Context) error {
	return seeOther(c, identity.Home(viewer(c)))
}
