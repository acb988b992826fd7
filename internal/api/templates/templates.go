// Package templates renders the server-side HTML screens. Every page is
// parsed together with the shared layout and partials into its own set, so
// pages can define the same block names without clashing.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/view"
	"github.com/electrix/tracker/pkg/format"
)

//go:embed layout.html partials.html pages/*.html
var files embed.FS

//go:embed static
var static embed.FS

// Page names.
const (
	PageLogin      = "login"
	PageRegister   = "register"
	PageWorkflow   = "workflow"
	PageCashFlow   = "cashflow"
	PageTeam       = "team"
	PageClientView = "client_view"
	PageLoading    = "loading"
	PageError      = "error"
)

// Page is the data every screen is executed with.
type Page struct {
	Title    string
	Identity identity.Identity
	CSRF     string
	// Nonce is echoed back by every form to detect double submissions.
	Nonce string
	Path  string
	Flash string
	Data  any
}

// Renderer implements echo.Renderer over the embedded pages.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page. It fails when a template does not parse.
func New() (*Renderer, error) {
	names, err := fs.Glob(files, "pages/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		key := strings.TrimSuffix(strings.TrimPrefix(name, "pages/"), ".html")
		t, err := template.New(key).Funcs(funcs).ParseFS(files, "layout.html", "partials.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[key] = t
	}
	return r, nil
}

// Render executes the page's layout.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// Static returns the stylesheet and script assets.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var funcs = template.FuncMap{
	"dict":            dict,
	"key":             view.Key,
	"clp":             format.CLP,
	"stages":          func() []string { return domain.Stages },
	"roles":           func() []domain.Role { return domain.Roles },
	"staffRoles":      func() []domain.Role { return []domain.Role{domain.RoleWorker, domain.RoleSupervisor} },
	"clientTypes":     func() []string { return domain.ClientTypes },
	"categories":      func() []string { return domain.Categories },
	"stageDone":       stageDone,
	"selectedClient":  selectedClient,
	"selectedProject": selectedProject,
	"editing":         editing,
	"pending":         pending,
	"amount":          func(d decimal.Decimal) string { return d.StringFixed(0) },
	"today":           func() string { return time.Now().Format(domain.DateLayout) },
	"initial":         initial,
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict needs key/value pairs")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[k] = pairs[i+1]
	}
	return m, nil
}

// stageDone is the value shown for a checkbox: an unconfirmed toggle wins
// over the stored checklist.
func stageDone(w *view.Workflow, u domain.HousingUnit, stage string) bool {
	if done, ok := w.Pending(u.ID, stage); ok {
		return done
	}
	return u.Status[stage]
}

type clientSelector interface {
	SelectedClient() (domain.Client, bool)
}

type projectSelector interface {
	SelectedProject() (domain.Project, bool)
}

func selectedClient(v clientSelector) *domain.Client {
	if c, ok := v.SelectedClient(); ok {
		return &c
	}
	return nil
}

func selectedProject(v projectSelector) *domain.Project {
	if p, ok := v.SelectedProject(); ok {
		return &p
	}
	return nil
}

// editing returns the transaction loaded into the cash flow form.
func editing(v *view.CashFlow) *domain.Transaction {
	if v.EditingID == "" {
		return nil
	}
	if t, ok := v.Find(v.EditingID); ok {
		return &t
	}
	return nil
}

func pending(w *view.Workflow, unitID, stage string) bool {
	_, ok := w.Pending(unitID, stage)
	return ok
}

func initial(s string) string {
	for _, r := range s {
		return strings.ToUpper(string(r))
	}
	return "?"
}
