package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/api/templates"
	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/service"
	"github.com/electrix/tracker/internal/core/view"
)

// TeamHandler serves the roster and the staff registration form.
type TeamHandler struct {
	team TeamService
	log  zerolog.Logger
}

func NewTeamHandler(team TeamService, log zerolog.Logger) *TeamHandler {
	return &TeamHandler{team: team, log: log}
}

type roleForm struct {
	Role string `form:"role" validate:"required"`
}

type passwordForm struct {
	Password string `form:"password"`
}

type registerForm struct {
	FullName string `form:"full_name" validate:"required"`
	RUT      string `form:"rut" validate:"required"`
	Role     string `form:"role" validate:"required,oneof=supervisor trabajador"`
	Password string `form:"password" validate:"required,min=6"`
}

// teamPage is the roster filtered by the search query.
type teamPage struct {
	View     *view.Team
	Profiles []domain.Profile
	Query    string
}

func (h *TeamHandler) Show(c echo.Context) error {
	v, err := h.team.Show(c.Request().Context(), viewer(c))
	if err != nil {
		return err
	}
	q := c.QueryParam("q")
	return c.Render(http.StatusOK, templates.PageTeam, newPage(c, "Equipo", teamPage{View: v, Profiles: v.Filtered(q), Query: q}))
}

func (h *TeamHandler) ChangeRole(c echo.Context) error {
	var f roleForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.team.ChangeRole(c.Request().Context(), viewer(c), c.Param("id"), domain.Role(f.Role)))
}

func (h *TeamHandler) ToggleActive(c echo.Context) error {
	return h.done(c, h.team.ToggleActive(c.Request().Context(), viewer(c), c.Param("id"), false))
}

func (h *TeamHandler) Delete(c echo.Context) error {
	return h.done(c, h.team.Delete(c.Request().Context(), viewer(c), c.Param("id"), false))
}

func (h *TeamHandler) OpenReset(c echo.Context) error {
	return h.done(c, h.team.OpenReset(c.Request().Context(), viewer(c), c.Param("id")))
}

func (h *TeamHandler) CancelReset(c echo.Context) error {
	return h.done(c, h.team.OpenReset(c.Request().Context(), viewer(c), ""))
}

func (h *TeamHandler) ResetPassword(c echo.Context) error {
	var f passwordForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.team.ResetPassword(c.Request().Context(), viewer(c), c.Param("id"), f.Password))
}

func (h *TeamHandler) Confirm(c echo.Context) error {
	var f confirmForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	ctx, id := c.Request().Context(), viewer(c)

	var err error
	switch f.Action {
	case "toggle_active":
		err = h.team.ToggleActive(ctx, id, f.Target, true)
	case "delete_profile":
		err = h.team.Delete(ctx, id, f.Target, true)
	default:
		h.log.Warn().Str("action", f.Action).Msg("unknown confirmation")
	}
	return h.done(c, err)
}

func (h *TeamHandler) Dismiss(c echo.Context) error {
	return h.done(c, h.team.Dismiss(c.Request().Context(), viewer(c)))
}

// RegisterPage renders the staff registration form.
func (h *TeamHandler) RegisterPage(c echo.Context) error {
	return c.Render(http.StatusOK, templates.PageRegister, newPage(c, "Registrar Usuario", nil))
}

// Register creates a worker or supervisor account and returns to the roster.
// Rejected input is shown on the form again.
func (h *TeamHandler) Register(c echo.Context) error {
	var f registerForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "formulario inválido")
	}
	if err := c.Validate(&f); err != nil {
		return h.registerFailed(c, f, http.StatusUnprocessableEntity, err.Error())
	}

	_, err := h.team.Register(c.Request().Context(), viewer(c), service.RegisterInput{
		RUT:      f.RUT,
		FullName: f.FullName,
		Role:     domain.Role(f.Role),
		Password: f.Password,
	})
	switch {
	case err == nil:
		return seeOther(c, identity.RouteTeam)
	case errors.Is(err, domain.ErrUnauthenticated):
		return err
	case errors.Is(err, domain.ErrForbidden):
		return h.registerFailed(c, f, http.StatusForbidden, service.UserMessage(err))
	case errors.Is(err, domain.ErrConflict):
		return h.registerFailed(c, f, http.StatusConflict, "Ya existe un usuario con ese RUT.")
	default:
		return h.registerFailed(c, f, http.StatusUnprocessableEntity, service.UserMessage(err))
	}
}

func (h *TeamHandler) registerFailed(c echo.Context, f registerForm, status int, msg string) error {
	f.Password = ""
	p := newPage(c, "Registrar Usuario", f)
	p.Flash = msg
	return c.Render(status, templates.PageRegister, p)
}

func (h *TeamHandler) done(c echo.Context, err error) error {
	if err != nil {
		return err
	}
	return h.back(c)
}

// back returns to the roster, keeping the search the form was posted from.
func (h *TeamHandler) back(c echo.Context) error {
	ref, err := url.Parse(c.Request().Referer())
	if err == nil && ref.Path == identity.RouteTeam && ref.Query().Get("q") != "" {
		return seeOther(c, identity.RouteTeam+"?"+url.Values{"q": {ref.Query().Get("q")}}.Encode())
	}
	return seeOther(c, identity.RouteTeam)
}
