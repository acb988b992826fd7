package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/api/handler"
	"github.com/electrix/tracker/internal/api/middleware"
	"github.com/electrix/tracker/internal/api/templates"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/ports"
	ops "github.com/electrix/tracker/internal/infrastructure/http"
	"github.com/electrix/tracker/internal/infrastructure/http/handlers"
)

// Sessions signs viewers in and out and resolves them on every request.
type Sessions interface {
	handler.AuthService
	middleware.SessionResolver
}

// Deps are the services and stores the router wires into handlers.
type Deps struct {
	Sessions Sessions
	Workflow handler.WorkflowService
	Units    handler.UnitService
	CashFlow handler.CashFlowService
	Team     handler.TeamService
	Portal   handler.PortalService
	Guard    ports.SubmissionGuard

	// Objects serves stored files; nil when the backend hosts them.
	Objects handlers.ObjectOpener
	Checks  []handlers.Checker

	Cookies        middleware.Cookies
	UploadMaxBytes int64
	Log            zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) (*echo.Echo, error) {
	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Cookies, d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware("electrix"))
	e.Use(echomiddleware.BodyLimit(bodyLimit(d.UploadMaxBytes)))

	// --- Probes, metrics and assets (no session) ---
	ops.RegisterOps(e, d.Objects, d.Checks...)
	e.StaticFS("/static", templates.Static())

	// --- Screens ---
	app := e.Group("",
		echomiddleware.CSRFWithConfig(echomiddleware.CSRFConfig{
			TokenLookup:    "form:_csrf",
			CookieName:     "_csrf",
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   d.Cookies.Secure,
			CookieSameSite: http.SameSiteLaxMode,
		}),
		middleware.Session(d.Sessions, d.Cookies, d.Log),
		middleware.Guard(handler.Loading),
		middleware.Dedup(d.Guard, d.Log),
	)

	authHandler := handler.NewAuthHandler(d.Sessions, d.Cookies, d.Log)
	app.GET(identity.RouteIndex, handler.Index)
	app.GET(identity.RouteLogin, authHandler.LoginPage)
	app.POST(identity.RouteLogin, authHandler.Login)
	app.POST(identity.RouteLogout, authHandler.Logout)

	workflowHandler := handler.NewWorkflowHandler(d.Workflow, d.Units, d.Log)
	app.GET(identity.RouteWorkflow, workflowHandler.Show)
	wf := app.Group(identity.RouteWorkflow)
	wf.POST("/clients", workflowHandler.CreateClient)
	wf.POST("/clients/:id", workflowHandler.UpdateClient)
	wf.POST("/clients/:id/delete", workflowHandler.DeleteClient)
	wf.POST("/clients/:id/access", workflowHandler.GenerateAccess)
	wf.POST("/projects", workflowHandler.CreateProject)
	wf.POST("/projects/:id", workflowHandler.RenameProject)
	wf.POST("/projects/:id/delete", workflowHandler.DeleteProject)
	wf.POST("/units", workflowHandler.CreateUnit)
	wf.POST("/units/:id/stages", workflowHandler.ToggleStage)
	wf.POST("/units/:id/comments", workflowHandler.SaveComment)
	wf.POST("/units/:id/name", workflowHandler.RenameUnit)
	wf.POST("/units/:id/delete", workflowHandler.DeleteUnit)
	wf.POST("/units/:id/images", workflowHandler.UploadImage)
	wf.POST("/units/:id/images/delete", workflowHandler.DeleteImage)
	wf.POST("/confirm", workflowHandler.Confirm)
	wf.POST("/dismiss", workflowHandler.Dismiss)

	cashFlowHandler := handler.NewCashFlowHandler(d.CashFlow, d.Log)
	app.GET(identity.RouteCashFlow, cashFlowHandler.Show)
	app.POST(identity.RouteCashFlow, cashFlowHandler.Save)
	cf := app.Group(identity.RouteCashFlow)
	cf.POST("/edit", cashFlowHandler.Edit)
	cf.POST("/:id/delete", cashFlowHandler.Delete)
	cf.POST("/confirm", cashFlowHandler.Confirm)
	cf.POST("/dismiss", cashFlowHandler.Dismiss)

	teamHandler := handler.NewTeamHandler(d.Team, d.Log)
	app.GET(identity.RouteTeam, teamHandler.Show)
	app.GET(identity.RouteRegister, teamHandler.RegisterPage)
	app.POST(identity.RouteRegister, teamHandler.Register)
	team := app.Group(identity.RouteTeam)
	team.POST("/:id/role", teamHandler.ChangeRole)
	team.POST("/:id/active", teamHandler.ToggleActive)
	team.POST("/:id/delete", teamHandler.Delete)
	team.POST("/:id/reset", teamHandler.OpenReset)
	team.POST("/:id/password", teamHandler.ResetPassword)
	team.POST("/reset/cancel", teamHandler.CancelReset)
	team.POST("/confirm", teamHandler.Confirm)
	team.POST("/dismiss", teamHandler.Dismiss)

	portalHandler := handler.NewPortalHandler(d.Portal)
	app.GET(identity.RouteClientView, portalHandler.Show)

	return e, nil
}

// bodyLimit leaves room for the multipart envelope around an upload.
func bodyLimit(uploadMax int64) string {
	const envelope = 1 << 20
	return fmt.Sprintf("%dK", (uploadMax+envelope)/1024)
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
