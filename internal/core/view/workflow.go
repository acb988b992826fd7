package view

import "github.com/electrix/tracker/internal/core/domain"

// PendingToggle is a checklist change sent to the backend but not yet
// confirmed.
type PendingToggle struct {
	Stage string `json:"stage"`
	Done  bool   `json:"done"`
}

// Workflow is the Client → Project → HousingUnit drill-down.
type Workflow struct {
	Meta

	Clients  []domain.Client      `json:"clients"`
	Projects []domain.Project     `json:"projects"`
	Units    []domain.HousingUnit `json:"units"`

	ClientID  string `json:"client_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`

	// Toggles holds unconfirmed checklist changes per unit id.
	Toggles map[string][]PendingToggle `json:"toggles,omitempty"`
}

func (w *Workflow) SelectedClient() (domain.Client, bool) {
	for _, c := range w.Clients {
		if c.ID == w.ClientID {
			return c, true
		}
	}
	return domain.Client{}, false
}

func (w *Workflow) SelectedProject() (domain.Project, bool) {
	for _, p := range w.Projects {
		if p.ID == w.ProjectID {
			return p, true
		}
	}
	return domain.Project{}, false
}

func (w *Workflow) Unit(id string) (domain.HousingUnit, bool) {
	for _, u := range w.Units {
		if u.ID == id {
			return u, true
		}
	}
	return domain.HousingUnit{}, false
}

// ImageOwner returns the id of the unit listing url, or "".
func (w *Workflow) ImageOwner(url string) string {
	for _, u := range w.Units {
		for _, img := range u.Images {
			if img == url {
				return u.ID
			}
		}
	}
	return ""
}

// Selects reports whether the cache was built for this selection.
func (w *Workflow) Selects(clientID, projectID string) bool {
	return w.ClientID == clientID && w.ProjectID == projectID
}

// AddClient inserts c at the head and selects it.
func (w *Workflow) AddClient(c domain.Client) {
	w.Clients = prepend(w.Clients, c)
	w.selectClient(c.ID)
}

func (w *Workflow) ReplaceClient(c domain.Client) {
	w.Clients = replaceFunc(w.Clients, func(x domain.Client) bool { return x.ID == c.ID }, c)
}

// RemoveClient drops the client and, when it was selected, the whole
// selection below it.
func (w *Workflow) RemoveClient(id string) {
	w.Clients = removeFunc(w.Clients, func(x domain.Client) bool { return x.ID == id })
	if w.ClientID == id {
		w.selectClient("")
	}
}

// AddProject inserts p at the head and selects it.
func (w *Workflow) AddProject(p domain.Project) {
	if p.ClientID != w.ClientID {
		return
	}
	w.Projects = prepend(w.Projects, p)
	w.ProjectID = p.ID
	w.Units = []domain.HousingUnit{}
	w.Toggles = nil
}

func (w *Workflow) ReplaceProject(p domain.Project) {
	w.Projects = replaceFunc(w.Projects, func(x domain.Project) bool { return x.ID == p.ID }, p)
}

// RemoveProject drops the project and clears the selected project and its
// units in the same step.
func (w *Workflow) RemoveProject(id string) {
	w.Projects = removeFunc(w.Projects, func(x domain.Project) bool { return x.ID == id })
	if w.ProjectID == id {
		w.ProjectID = ""
		w.Units = []domain.HousingUnit{}
		w.Toggles = nil
	}
}

// AddUnit appends u; units are listed oldest first.
func (w *Workflow) AddUnit(u domain.HousingUnit) {
	if u.ProjectID != w.ProjectID {
		return
	}
	w.Units = append(w.Units, u)
}

func (w *Workflow) ReplaceUnit(u domain.HousingUnit) {
	w.Units = replaceFunc(w.Units, func(x domain.HousingUnit) bool { return x.ID == u.ID }, u)
}

func (w *Workflow) RemoveUnit(id string) {
	w.Units = removeFunc(w.Units, func(x domain.HousingUnit) bool { return x.ID == id })
	delete(w.Toggles, id)
}

// BeginToggle records the requested stage value as pending for unit.
func (w *Workflow) BeginToggle(unitID, stage string, done bool) {
	if w.Toggles == nil {
		w.Toggles = make(map[string][]PendingToggle)
	}
	list := removeFunc(w.Toggles[unitID], func(p PendingToggle) bool { return p.Stage == stage })
	w.Toggles[unitID] = append(list, PendingToggle{Stage: stage, Done: done})
	w.SetRequest(Key("unit", unitID), Pending)
}

// CommitToggle records a confirmed write. sent is the whole checklist the
// write carried, so other stages that were still pending when it was issued
// become the committed values too. Their own toggles stay pending until they
// settle.
func (w *Workflow) CommitToggle(unitID, stage string, sent domain.Checklist) {
	w.dropToggle(unitID, stage)
	for i, u := range w.Units {
		if u.ID == unitID {
			w.Units[i].Status = sent.Clone()
		}
	}
	if len(w.Toggles[unitID]) == 0 {
		w.SetRequest(Key("unit", unitID), Idle)
	}
}

// RollbackToggle forgets a toggle the backend refused. The stage falls back
// to its last committed value, which may come from a later write that
// carried it.
func (w *Workflow) RollbackToggle(unitID, stage string) {
	w.dropToggle(unitID, stage)
	w.SetRequest(Key("unit", unitID), Failed)
}

// Pending reports the unconfirmed value of stage on unit, if any.
func (w *Workflow) Pending(unitID, stage string) (done, ok bool) {
	for _, p := range w.Toggles[unitID] {
		if p.Stage == stage {
			return p.Done, true
		}
	}
	return false, false
}

func (w *Workflow) dropToggle(unitID, stage string) {
	list := removeFunc(w.Toggles[unitID], func(p PendingToggle) bool { return p.Stage == stage })
	if len(list) == 0 {
		delete(w.Toggles, unitID)
		return
	}
	w.Toggles[unitID] = list
}

func (w *Workflow) selectClient(id string) {
	w.ClientID = id
	w.ProjectID = ""
	w.Projects = []domain.Project{}
	w.Units = []domain.HousingUnit{}
	w.Toggles = nil
}
