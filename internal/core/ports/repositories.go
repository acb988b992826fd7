package ports

import (
	"context"

	"github.com/electrix/tracker/internal/core/domain"
)

// Order sorts a selection by one column.
type Order struct {
	Column    string
	Ascending bool
}

// ClientFilter narrows a client selection. An empty RUT means no filter.
type ClientFilter struct {
	RUT   string
	Order Order
}

// ProfileRepository persists identity profiles.
type ProfileRepository interface {
	Get(ctx context.Context, id string) (*domain.Profile, error)
	// List returns every visible profile, newest first.
	List(ctx context.Context) ([]domain.Profile, error)
	Insert(ctx context.Context, p domain.Profile) (*domain.Profile, error)
	Update(ctx context.Context, id string, patch domain.ProfilePatch) error
	Delete(ctx context.Context, id string) error
}

type ClientRepository interface {
	List(ctx context.Context, filter ClientFilter) ([]domain.Client, error)
	Insert(ctx context.Context, c domain.Client) (*domain.Client, error)
	Update(ctx context.Context, id string, patch domain.ClientPatch) error
	// Delete removes the client; the backend cascades to its projects.
	Delete(ctx context.Context, id string) error
}

type ProjectRepository interface {
	// ListByClient returns the client's projects, newest first.
	ListByClient(ctx context.Context, clientID string) ([]domain.Project, error)
	Insert(ctx context.Context, p domain.Project) (*domain.Project, error)
	Update(ctx context.Context, id string, patch domain.ProjectPatch) error
	// Delete removes the project; the backend cascades to its housing units.
	Delete(ctx context.Context, id string) error
}

type HousingUnitRepository interface {
	// ListByProject returns the project's units, oldest first.
	ListByProject(ctx context.Context, projectID string) ([]domain.HousingUnit, error)
	Insert(ctx context.Context, u domain.HousingUnit) (*domain.HousingUnit, error)
	Update(ctx context.Context, id string, patch domain.HousingUnitPatch) error
	Delete(ctx context.Context, id string) error
}

type TransactionRepository interface {
	// List returns every visible transaction ordered by date, newest first.
	List(ctx context.Context) ([]domain.Transaction, error)
	Insert(ctx context.Context, t domain.Transaction) (*domain.Transaction, error)
	Update(ctx context.Context, id string, patch domain.TransactionPatch) error
	Delete(ctx context.Context, id string) error
}
