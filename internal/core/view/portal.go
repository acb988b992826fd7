package view

import "github.com/electrix/tracker/internal/core/domain"

// Portal is the read-only client drill-down.
type Portal struct {
	Meta

	Clients  []domain.Client      `json:"clients"`
	Projects []domain.Project     `json:"projects"`
	Units    []domain.HousingUnit `json:"units"`

	ClientID  string `json:"client_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

func (p *Portal) Selects(clientID, projectID string) bool {
	return p.ClientID == clientID && p.ProjectID == projectID
}

// AutoSelect picks the only client when exactly one is visible and nothing
// was requested explicitly.
func (p *Portal) AutoSelect(requested string) string {
	if requested == "" && len(p.Clients) == 1 {
		return p.Clients[0].ID
	}
	return requested
}

func (p *Portal) SelectedClient() (domain.Client, bool) {
	for _, c := range p.Clients {
		if c.ID == p.ClientID {
			return c, true
		}
	}
	return domain.Client{}, false
}

func (p *Portal) SelectedProject() (domain.Project, bool) {
	for _, pr := range p.Projects {
		if pr.ID == p.ProjectID {
			return pr, true
		}
	}
	return domain.Project{}, false
}
