package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/ports"
	"github.com/electrix/tracker/internal/core/view"
)

// PortalService builds the read-only client drill-down. It has no mutations,
// so every request reads from the backend.
type PortalService struct {
	backend ports.Backend
	log     zerolog.Logger
}

func NewPortalService(backend ports.Backend, log zerolog.Logger) *PortalService {
	return &PortalService{backend: backend, log: log}
}

// Show lists the clients visible to the viewer. A cliente identity only sees
// clients whose RUT equals its own; without a RUT it sees nothing and no
// backend call is made. A single visible client is selected automatically.
func (s *PortalService) Show(ctx context.Context, id identity.Identity, clientID, projectID string) (*view.Portal, error) {
	v := &view.Portal{}
	err := s.load(ctx, id, v, clientID, projectID)
	if errors.Is(err, domain.ErrUnauthenticated) {
		return nil, err
	}
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load portal")
		v.Alert = &view.Alert{Title: "Error al cargar datos", Message: UserMessage(err)}
	}
	return v, nil
}

func (s *PortalService) load(ctx context.Context, id identity.Identity, v *view.Portal, clientID, projectID string) error {
	filter := ports.ClientFilter{Order: ports.Order{Column: "name", Ascending: true}}
	if id.IsClient() {
		if id.Profile.RUT == "" {
			return nil
		}
		filter.RUT = id.Profile.RUT
	}

	gw := s.backend.As(id.Auth())
	clients, err := gw.Clients().List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	v.Clients = clients

	v.ClientID = v.AutoSelect(clientID)
	if _, ok := v.SelectedClient(); !ok {
		v.ClientID = ""
		return nil
	}
	projects, err := gw.Projects().ListByClient(ctx, v.ClientID)
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
