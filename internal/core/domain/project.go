package domain

import "time"

// DefaultProjectStatus is assigned to every new project. Status is free text.
const DefaultProjectStatus = "En curso"

// Project groups the housing units built for a client.
type Project struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type ProjectPatch struct {
	Name   *string
	Status *string
}

func (p ProjectPatch) Fields() map[string]any {
	f := make(map[string]any, 2)
	if p.Name != nil {
		f["name"] = *p.Name
	}
	if p.Status != nil {
		f["status"] = *p.Status
	}
	return f
}

func (p ProjectPatch) Apply(pr Project) Project {
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.Status != nil {
		pr.Status = *p.Status
	}
	return pr
}
