package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/api/templates"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/service"
)

// WorkflowHandler serves the Client → Project → HousingUnit screen and the
// actions of each housing unit row.
type WorkflowHandler struct {
	workflow WorkflowService
	units    UnitService
	log      zerolog.Logger
}

func NewWorkflowHandler(workflow WorkflowService, units UnitService, log zerolog.Logger) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow, units: units, log: log}
}

type clientForm struct {
	Name string `form:"name" validate:"required"`
	Type string `form:"type"`
	RUT  string `form:"rut"`
}

type nameForm struct {
	Name string `form:"name" validate:"required"`
}

type projectForm struct {
	ClientID string `form:"client_id" validate:"required"`
	Name     string `form:"name" validate:"required"`
}

type unitForm struct {
	ProjectID string `form:"project_id" validate:"required"`
	Name      string `form:"name" validate:"required"`
}

type accessForm struct {
	Password string `form:"password"`
}

type stageForm struct {
	Stage string `form:"stage" validate:"required"`
}

type commentForm struct {
	Comments string `form:"comments"`
}

type imageForm struct {
	URL string `form:"url" validate:"required"`
}

type confirmForm struct {
	Action string `form:"action" validate:"required"`
	Target string `form:"target" validate:"required"`
	Unit   string `form:"unit"`
}

// Show renders the screen for the selection in the query string.
func (h *WorkflowHandler) Show(c echo.Context) error {
	v, err := h.workflow.Show(c.Request().Context(), viewer(c), c.QueryParam("client"), c.QueryParam("project"))
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, templates.PageWorkflow, newPage(c, "Flujo de Trabajo", v))
}

func (h *WorkflowHandler) CreateClient(c echo.Context) error {
	var f clientForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.workflow.CreateClient(c.Request().Context(), viewer(c), service.ClientInput{Name: f.Name, Type: f.Type, RUT: f.RUT}))
}

func (h *WorkflowHandler) UpdateClient(c echo.Context) error {
	var f clientForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	in := service.ClientInput{Name: f.Name, Type: f.Type, RUT: f.RUT}
	return h.done(c, h.workflow.UpdateClient(c.Request().Context(), viewer(c), c.Param("id"), in))
}

func (h *WorkflowHandler) DeleteClient(c echo.Context) error {
	return h.done(c, h.workflow.DeleteClient(c.Request().Context(), viewer(c), c.Param("id"), false))
}

func (h *WorkflowHandler) GenerateAccess(c echo.Context) error {
	var f accessForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.workflow.GenerateAccess(c.Request().Context(), viewer(c), c.Param("id"), f.Password))
}

func (h *WorkflowHandler) CreateProject(c echo.Context) error {
	var f projectForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.workflow.CreateProject(c.Request().Context(), viewer(c), f.ClientID, f.Name))
}

func (h *WorkflowHandler) RenameProject(c echo.Context) error {
	var f nameForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.workflow.RenameProject(c.Request().Context(), viewer(c), c.Param("id"), f.Name))
}

func (h *WorkflowHandler) DeleteProject(c echo.Context) error {
	return h.done(c, h.workflow.DeleteProject(c.Request().Context(), viewer(c), c.Param("id"), false))
}

func (h *WorkflowHandler) CreateUnit(c echo.Context) error {
	var f unitForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.workflow.CreateUnit(c.Request().Context(), viewer(c), f.ProjectID, f.Name))
}

func (h *WorkflowHandler) ToggleStage(c echo.Context) error {
	var f stageForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.units.ToggleStage(c.Request().Context(), viewer(c), c.Param("id"), f.Stage))
}

func (h *WorkflowHandler) SaveComment(c echo.Context) error {
	var f commentForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.units.SaveComment(c.Request().Context(), viewer(c), c.Param("id"), f.Comments))
}

func (h *WorkflowHandler) RenameUnit(c echo.Context) error {
	var f nameForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.units.Rename(c.Request().Context(), viewer(c), c.Param("id"), f.Name))
}

func (h *WorkflowHandler) DeleteUnit(c echo.Context) error {
	return h.done(c, h.units.Delete(c.Request().Context(), viewer(c), c.Param("id"), false))
}

// UploadImage streams the posted file to the unit's upload saga. A post
// without a file is ignored.
func (h *WorkflowHandler) UploadImage(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return h.back(c)
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	return h.done(c, h.units.UploadImage(c.Request().Context(), viewer(c), c.Param("id"), service.Upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get(echo.HeaderContentType),
		Body:        src,
	}))
}

func (h *WorkflowHandler) DeleteImage(c echo.Context) error {
	var f imageForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	return h.done(c, h.units.DeleteImage(c.Request().Context(), viewer(c), c.Param("id"), f.URL, false))
}

// Confirm carries out the destructive action the screen asked about.
func (h *WorkflowHandler) Confirm(c echo.Context) error {
	var f confirmForm
	if !bindForm(c, &f) {
		return h.back(c)
	}
	ctx, id := c.Request().Context(), viewer(c)

	var err error
	switch f.Action {
	case "delete_client":
		err = h.workflow.DeleteClient(ctx, id, f.Target, true)
	case "delete_project":
		err = h.workflow.DeleteProject(ctx, id, f.Target, true)
	case "delete_unit":
		err = h.units.Delete(ctx, id, f.Target, true)
	case "delete_image":
		err = h.units.DeleteImage(ctx, id, f.Unit, f.Target, true)
	default:
		h.log.Warn().Str("action", f.Action).Msg("unknown confirmation")
	}
	return h.done(c, err)
}

func (h *WorkflowHandler) Dismiss(c echo.Context) error {
	return h.done(c, h.workflow.Dismiss(c.Request().Context(), viewer(c)))
}

func (h *WorkflowHandler) done(c echo.Context, err error) error {
	if err != nil {
		return err
	}
	return h.back(c)
}

// back redirects to the screen with the selection the view currently holds.
func (h *WorkflowHandler) back(c echo.Context) error {
	clientID, projectID, err := h.workflow.Selection(c.Request().Context(), viewer(c))
	if err != nil {
		return err
	}
	return seeOther(c, workflowURL(clientID, projectID))
}

func workflowURL(clientID, projectID string) string {
	q := url.Values{}
	if clientID != "" {
		q.Set("client", clientID)
	}
	if projectID != "" {
		q.Set("project", projectID)
	}
	if len(q) == 0 {
		return identity.RouteWorkflow
	}
	return identity.RouteWorkflow + "?" + q.Encode()
}
