package handler

import (
	"context"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/service"
	"github.com/electrix/tracker/internal/core/view"
)

// The interfaces below are the parts of the screen services each handler
// drives. They are satisfied by the types in internal/core/service.

type AuthService interface {
	SignIn(ctx context.Context, rut, password string) (*domain.Session, error)
	SignOut(ctx context.Context, sessionID string) error
}

type WorkflowService interface {
	Show(ctx context.Context, id identity.Identity, clientID, projectID string) (*view.Workflow, error)
	Selection(ctx context.Context, id identity.Identity) (clientID, projectID string, err error)
	CreateClient(ctx context.Context, id identity.Identity, in service.ClientInput) error
	UpdateClient(ctx context.Context, id identity.Identity, clientID string, in service.ClientInput) error
	DeleteClient(ctx context.Context, id identity.Identity, clientID string, confirmed bool) error
	CreateProject(ctx context.Context, id identity.Identity, clientID, name string) error
	RenameProject(ctx context.Context, id identity.Identity, projectID, name string) error
	DeleteProject(ctx context.Context, id identity.Identity, projectID string, confirmed bool) error
	CreateUnit(ctx context.Context, id identity.Identity, projectID, name string) error
	GenerateAccess(ctx context.Context, id identity.Identity, clientID, password string) error
	Dismiss(ctx context.Context, id identity.Identity) error
}

type UnitService interface {
	ToggleStage(ctx context.Context, id identity.Identity, unitID, stage string) error
	SaveComment(ctx context.Context, id identity.Identity, unitID, comment string) error
	Rename(ctx context.Context, id identity.Identity, unitID, name string) error
	Delete(ctx context.Context, id identity.Identity, unitID string, confirmed bool) error
	UploadImage(ctx context.Context, id identity.Identity, unitID string, up service.Upload) error
	DeleteImage(ctx context.Context, id identity.Identity, unitID, url string, confirmed bool) error
}

type CashFlowService interface {
	Show(ctx context.Context, id identity.Identity) (*view.CashFlow, error)
	Save(ctx context.Context, id identity.Identity, in service.TransactionInput) error
	Edit(ctx context.Context, id identity.Identity, txID string) error
	Delete(ctx context.Context, id identity.Identity, txID string, confirmed bool) error
	Dismiss(ctx context.Context, id identity.Identity) error
}

type TeamService interface {
	Show(ctx context.Context, id identity.Identity) (*view.Team, error)
	ChangeRole(ctx context.Context, id identity.Identity, profileID string, role domain.Role) error
	ToggleActive(ctx context.Context, id identity.Identity, profileID string, confirmed bool) error
	Delete(ctx context.Context, id identity.Identity, profileID string, confirmed bool) error
	OpenReset(ctx context.Context, id identity.Identity, profileID string) error
	ResetPassword(ctx context.Context, id identity.Identity, profileID, password string) error
	Register(ctx context.Context, id identity.Identity, in service.RegisterInput) (*domain.Profile, error)
	Dismiss(ctx context.Context, id identity.Identity) error
}

type PortalService interface {
	Show(ctx context.Context, id identity.Identity, clientID, projectID string) (*view.Portal, error)
}
