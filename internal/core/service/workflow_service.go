package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/ports"
	"github.com/electrix/tracker/internal/core/view"
	"github.com/electrix/tracker/pkg/format"
)

const screenWorkflow = "workflow"

// MinPasswordLength is the shortest password the backend accepts.
const MinPasswordLength = 6

// ClientInput is the client form.
type ClientInput struct {
	Name string
	Type string
	RUT  string
}

// WorkflowService drives the Client → Project → HousingUnit screen.
type WorkflowService struct {
	backend     ports.Backend
	views       screenStore[view.Workflow, *view.Workflow]
	emailDomain string
	log         zerolog.Logger
}

func NewWorkflowService(backend ports.Backend, views ports.ViewStore, emailDomain string, log zerolog.Logger) *WorkflowService {
	return &WorkflowService{
		backend:     backend,
		views:       newScreenStore[view.Workflow](views, screenWorkflow, log),
		emailDomain: emailDomain,
		log:         log,
	}
}

// Show returns the screen for the requested selection. Unknown ids in the
// selection are ignored.
func (s *WorkflowService) Show(ctx context.Context, id identity.Identity, clientID, projectID string) (*view.Workflow, error) {
	return s.views.show(ctx, id.SessionID(),
		func(v *view.Workflow) bool { return v.Selects(clientID, projectID) },
		func(ctx context.Context, v *view.Workflow) error {
			return s.mount(ctx, s.backend.As(id.Auth()), v, clientID, projectID)
		})
}

func (s *WorkflowService) mount(ctx context.Context, gw ports.Gateway, v *view.Workflow, clientID, projectID string) error {
	v.Projects = []domain.Project{}
	v.Units = []domain.HousingUnit{}

	clients, err := gw.Clients().List(ctx, ports.ClientFilter{Order: ports.Order{Column: "created_at"}})
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	v.Clients = clients
	v.ClientID = clientID
	if _, ok := v.SelectedClient(); !ok {
		v.ClientID = ""
		return nil
	}

	projects, err := gw.Projects().ListByClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	v.Projects = projects
	v.ProjectID = projectID
	if _, ok := v.SelectedProject(); !ok {
		v.ProjectID = ""
		return nil
	}

	units, err := gw.HousingUnits().ListByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("list housing units: %w", err)
	}
	v.Units = units
	return nil
}

// CreateClient inserts a client and selects it. A blank name is ignored.
func (s *WorkflowService) CreateClient(ctx context.Context, id identity.Identity, in ClientInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil
	}
	c := domain.Client{Name: name, Type: clientType(in.Type), RUT: formatOptionalRUT(in.RUT)}
	if id.Profile != nil {
		c.CreatedBy = id.Profile.ID
	}

	return s.views.mutate(ctx, id.SessionID(), mutation[*view.Workflow]{
		action: "create_client",
		key:    view.Key("client", "new"),
		call: func(ctx context.Context) (func(*view.Workflow), error) {
			created, err := s.backend.As(id.Auth()).Clients().Insert(ctx, c)
			if err != nil {
				return nil, err
			}
			return func(v *view.Workflow) { v.AddClient(*created) }, nil
		},
	})
}

// UpdateClient replaces a client's name, type and RUT. A blank name is
// ignored; a blank RUT clears it.
func (s *WorkflowService) UpdateClient(ctx context.Context, id identity.Identity, clientID string, in ClientInput) error {
	name := strings.TrimSpace(in.Name)
	if clientID == "" || name == "" {
		return nil
	}
	typ := clientType(in.Type)
	rut := formatOptionalRUT(in.RUT)
	patch := domain.ClientPatch{Name: &name, Type: &typ, RUT: &rut}

	return s.views.mutate(ctx, id.SessionID(), mutation[*view.Workflow]{
		action: "update_client",
		key:    view.Key("client", clientID),
		call: func(ctx context.Context) (func(*view.Workflow), error) {
			if err := s.backend.As(id.Auth()).Clients().Update(ctx, clientID, patch); err != nil {
				return nil, err
			}
			return func(v *view.Workflow) {
				for _, c := range v.Clients {
					if c.ID == clientID {
						v.ReplaceClient(patch.Apply(c))
					}
				}
			}, nil
		},
	})
}

// DeleteClient removes a client once confirmed. The backend cascades the
// delete to its projects and units.
func (s *WorkflowService) DeleteClient(ctx context.Context, id identity.Identity, clientID string, confirmed bool) error {
	if clientID == "" {
		return nil
	}
	ok, err := s.views.confirm(ctx, id.SessionID(), view.Confirmation{
		Action:   "delete_client",
		TargetID: clientID,
		Prompt:   "¿Estás seguro de eliminar este cliente? Se eliminarán todos sus proyectos y viviendas.",
	}, confirmed)
	if err != nil || !ok {
		return err
	}

	return s.views.mutate(ctx, id.SessionID(), mutation[*view.Workflow]{
		action: "delete_client",
		key:    view.Key("client", clientID),
		call: func(ctx context.Context) (func(*view.Workflow), error) {
			if err := s.backend.As(id.Auth()).Clients().Delete(ctx, clientID); err != nil {
				return nil, err
			}
			return func(v *view.Workflow) { v.RemoveClient(clientID) }, nil
		},
	})
}

// CreateProject inserts a project under clientID and selects it.
func (s *WorkflowService) CreateProject(ctx context.Context, id identity.Identity, clientID, name string) error {
	name = strings.TrimSpace(name)
	if clientID == "" || name == "" {
		return nil
	}
	p := domain.Project{ClientID: clientID, Name: name, Status: domain.DefaultProjectStatus}

	return s.views.mutate(ctx, id.SessionID(), mutation[*view.Workflow]{
		action: "create_project",
		key:    view.Key("project", "new"),
		call: func(ctx context.Context) (func(*view.Workflow), error) {
			created, err := s.backend.As(id.Auth()).Projects().Insert(ctx, p)
			if err != nil {
				return nil, err
			}
			return func(v *view.Workflow) { v.AddProject(*created) }, nil
		},
	})
}

func (s *WorkflowService) RenameProject(ctx context.Context, id identity.Identity, projectID, name string) error {
	name = strings.TrimSpace(name)
	if projectID == "" || name == "" {
		return nil
	}
	patch := domain.ProjectPatch{Name: &name}

	return s.views.mutate(ctx, id.SessionID(), mutation[*view.Workflow]{
		action: "rename_project",
		key:    view.Key("project", projectID),
		call: func(ctx context.Context) (func(*view.Workflow), error) {
			if err := s.backend.As(id.Auth()).Projects().Update(ctx, projectID, patch); err != nil {
				return nil, err
			}
			return func(v *view.Workflow) {
				for _, p := range v.Projects {
					if p.ID == projectID {
						v.ReplaceProject(patch.Apply(p))
					}
				}
			}, nil
		},
	})
}

// DeleteProject removes a project once confirmed and clears the project and
// unit selection in the same step.
func (s *WorkflowService) DeleteProject(ctx context.Context, id identity.Identity, projectID string, confirmed bool) error {
	if projectID == "" {
		return nil
	}
	ok, err := s.views.confirm(ctx, id.SessionID(), view.Confirmation{
		Action:   "delete_project",
		TargetID: projectID,
		Prompt:   "¿Estás seguro de eliminar este proyecto? Se eliminarán todas sus viviendas.",
	}, confirmed)
	if err != nil || !ok {
		return err
	}

	return s.views.mutate(ctx, id.SessionID(), mutation[*view.Workflow]{
		action: "delete_project",
		key:    view.Key("project", projectID),
		call: func(ctx context.Context) (func(*view.Workflow), error) {
			if err := s.backend.As(id.Auth()).Projects().Delete(ctx, projectID); err != nil {
				return nil, err
			}
			return func(v *view.Workflow) { v.RemoveProject(projectID) }, nil
		},
	})
}

// CreateUnit appends a housing unit with an empty checklist.
func (s *WorkflowService) CreateUnit(ctx context.Context, id identity.Identity, projectID, name string) error {
	name = strings.TrimSpace(name)
	if projectID == "" || name == "" {
		return nil
	}
	u := domain.HousingUnit{ProjectID: projectID, Name: name, Status: domain.Checklist{}, Images: []string{}}

	return s.views.mutate(ctx, id.SessionID(), mutation[*view.Workflow]{
		action: "create_unit",
		key:    view.Key("unit", "new"),
		call: func(ctx context.Context) (func(*view.Workflow), error) {
			created, err := s.backend.As(id.Auth()).HousingUnits().Insert(ctx, u)
			if err != nil {
				return nil, err
			}
			return func(v *view.Workflow) { v.AddUnit(*created) }, nil
		},
	})
}

// GenerateAccess issues portal credentials for a client. The new identity
// logs in with the client's RUT and gets the cliente role.
func (s *WorkflowService) GenerateAccess(ctx context.Context, id identity.Identity, clientID, password string) error {
	sid := id.SessionID()
	if !id.IsSupervisor() {
		return s.views.alert(ctx, sid, alertFor("generate_access", domain.ErrForbidden))
	}

	v, err := s.views.peek(ctx, sid)
	if err != nil {
		return err
	}
	client, found := findClient(v.Clients, clientID)
	if !found || client.RUT == "" || len(password) < MinPasswordLength {
		return s.views.alert(ctx, sid, view.Alert{
			Title:   "Error",
			Message: fmt.Sprintf("El cliente debe tener un RUT y la contraseña debe tener al menos %d caracteres.", MinPasswordLength),
		})
	}

	return s.views.mutate(ctx, sid, mutation[*view.Workflow]{
		action: "generate_access",
		key:    view.Key("access", clientID),
		call: func(ctx context.Context) (func(*view.Workflow), error) {
			_, err := issueAccount(ctx, s.backend, id.Auth(), password, domain.Profile{
				RUT:      client.RUT,
				FullName: client.Name,
				Role:     domain.RoleClient,
			}, s.emailDomain)
			if err != nil {
				return nil, err
			}
			s.log.Info().Str("client_id", clientID).Msg("client access generated")
			return func(v *view.Workflow) {
				v.Alert = &view.Alert{
					Title:   "¡Credenciales creadas con éxito!",
					Message: "Usuario: " + client.RUT,
					Success: true,
				}
			}, nil
		},
	})
}

// Selection returns the client and project the screen has selected, so the
// browser can be sent back to them after a mutation.
func (s *WorkflowService) Selection(ctx context.Context, id identity.Identity) (clientID, projectID string, err error) {
	v, err := s.views.peek(ctx, id.SessionID())
	if err != nil {
		return "", "", fmt.Errorf("load workflow view: %w", err)
	}
	return v.ClientID, v.ProjectID, nil
}

// Dismiss closes the alert or confirmation currently shown.
func (s *WorkflowService) Dismiss(ctx context.Context, id identity.Identity) error {
	return s.views.dismiss(ctx, id.SessionID())
}

func findClient(clients []domain.Client, id string) (domain.Client, bool) {
	for _, c := range clients {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Client{}, false
}

func clientType(t string) string {
	for _, known := range domain.ClientTypes {
		if t == known {
			return t
		}
	}
	return domain.DefaultClientType
}

func formatOptionalRUT(rut string) string {
	if format.CleanRUT(rut) == "" {
		return ""
	}
	return format.FormatRUT(rut)
}
