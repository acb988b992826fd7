package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/electrix/tracker/internal/api/templates"
)

// PortalHandler serves the read-only client portal.
type PortalHandler struct {
	portal PortalService
}

func NewPortalHandler(portal PortalService) *PortalHandler {
	return &PortalHandler{portal: portal}
}

func (h *PortalHandler) Show(c echo.Context) error {
	v, err := h.portal.Show(c.Request().Context(), viewer(c), c.QueryParam("client"), c.QueryParam("project"))
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, templates.PageClientView, newPage(c, "Portal de Clientes", v))
}
