package view

import (
	"testing"

	"github.com/electrix/tracker/internal/core/domain"
)

func seededWorkflow() *Workflow {
	w := &Workflow{
		Clients:   []domain.Client{{ID: "c1", Name: "Sygma"}, {ID: "c2", Name: "Particular"}},
		Projects:  []domain.Project{{ID: "p1", ClientID: "c1"}, {ID: "p2", ClientID: "c1"}},
		Units:     []domain.HousingUnit{{ID: "u1", ProjectID: "p1", Status: domain.Checklist{}}},
		ClientID:  "c1",
		ProjectID: "p1",
	}
	w.Mounted()
	return w
}

func TestWorkflow_RemoveSelectedProjectClearsSelection(t *testing.T) {
	w := seededWorkflow()

	w.RemoveProject("p1")

	if len(w.Projects) != 1 || w.Projects[0].ID != "p2" {
		t.Fatalf("project not removed: %+v", w.Projects)
	}
	if w.ProjectID != "" {
		t.Fatalf("expected selected project cleared, got %q", w.ProjectID)
	}
	if len(w.Units) != 0 {
		t.Fatalf("expected units cleared, got %d", len(w.Units))
	}
	if w.ClientID != "c1" {
		t.Fatalf("client selection should survive, got %q", w.ClientID)
	}
}

func TestWorkflow_RemoveOtherProjectKeepsSelection(t *testing.T) {
	w := seededWorkflow()

	w.RemoveProject("p2")

	if w.ProjectID != "p1" || len(w.Units) != 1 {
		t.Fatalf("selection changed: project=%q units=%d", w.ProjectID, len(w.Units))
	}
}

func TestWorkflow_AddClientSelectsIt(t *testing.T) {
	w := seededWorkflow()

	w.AddClient(domain.Client{ID: "c3", Name: "Nuevo"})

	if w.Clients[0].ID != "c3" {
		t.Fatalf("expected head insert, got %+v", w.Clients)
	}
	if w.ClientID != "c3" || w.ProjectID != "" || len(w.Projects) != 0 || len(w.Units) != 0 {
		t.Fatalf("expected fresh selection of c3, got %+v", w)
	}
}

func TestWorkflow_AddProjectSelectsIt(t *testing.T) {
	w := seededWorkflow()

	w.AddProject(domain.Project{ID: "p3", ClientID: "c1"})

	if w.Projects[0].ID != "p3" || w.ProjectID != "p3" {
		t.Fatalf("expected p3 selected at head, got %q %+v", w.ProjectID, w.Projects)
	}
	if len(w.Units) != 0 {
		t.Fatalf("expected empty units, got %d", len(w.Units))
	}
}

func TestWorkflow_AddUnitAppends(t *testing.T) {
	w := seededWorkflow()

	w.AddUnit(domain.HousingUnit{ID: "u2", ProjectID: "p1"})
	w.AddUnit(domain.HousingUnit{ID: "u9", ProjectID: "p2"})

	if len(w.Units) != 2 || w.Units[1].ID != "u2" {
		t.Fatalf("expected u2 appended, got %+v", w.Units)
	}
}

func TestWorkflow_ToggleCommit(t *testing.T) {
	w := seededWorkflow()

	w.BeginToggle("u1", "TE1", true)
	if done, ok := w.Pending("u1", "TE1"); !ok || !done {
		t.Fatalf("expected pending TE1=true")
	}
	if w.Units[0].Status["TE1"] {
		t.Fatalf("cache must not change before commit")
	}
	if w.Request(Key("unit", "u1")) != Pending {
		t.Fatalf("expected pending request state")
	}

	w.CommitToggle("u1", "TE1", domain.Checklist{"TE1": true})

	if !w.Units[0].Status["TE1"] || len(w.Units[0].Status) != 1 {
		t.Fatalf("unexpected status %+v", w.Units[0].Status)
	}
	if _, ok := w.Pending("u1", "TE1"); ok {
		t.Fatalf("pending toggle should be gone")
	}
	if w.Request(Key("unit", "u1")) != Idle {
		t.Fatalf("expected idle request state")
	}
}

func TestWorkflow_ToggleRollback(t *testing.T) {
	w := seededWorkflow()
	w.Units[0].Status = domain.Checklist{"Empalme": true}

	w.BeginToggle("u1", "Empalme", false)
	w.RollbackToggle("u1", "Empalme")

	if !w.Units[0].Status["Empalme"] {
		t.Fatalf("rollback must keep the confirmed value")
	}
	if _, ok := w.Pending("u1", "Empalme"); ok {
		t.Fatalf("pending toggle should be gone")
	}
	if w.Request(Key("unit", "u1")) != Failed {
		t.Fatalf("expected error request state")
	}
}

func TestWorkflow_CommitCarriesOtherPendingStages(t *testing.T) {
	w := seededWorkflow()

	w.BeginToggle("u1", "TE1", true)
	w.BeginToggle("u1", "TDA", true)
	// The TDA write was issued with TE1 still pending and succeeds first.
	w.CommitToggle("u1", "TDA", domain.Checklist{"TE1": true, "TDA": true})

	if done, ok := w.Pending("u1", "TE1"); !ok || !done {
		t.Fatalf("TE1 must stay pending until its own write settles")
	}
	if w.Request(Key("unit", "u1")) != Pending {
		t.Fatalf("expected pending request state")
	}

	w.RollbackToggle("u1", "TE1")

	if !w.Units[0].Status["TE1"] || !w.Units[0].Status["TDA"] {
		t.Fatalf("TE1 must fall back to the value committed by the TDA write, got %+v", w.Units[0].Status)
	}
}

func TestWorkflow_RemoveSelectedClient(t *testing.T) {
	w := seededWorkflow()

	w.RemoveClient("c1")

	if w.ClientID != "" || w.ProjectID != "" || len(w.Projects) != 0 || len(w.Units) != 0 {
		t.Fatalf("expected empty selection, got %+v", w)
	}
	if len(w.Clients) != 1 {
		t.Fatalf("expected one client left, got %d", len(w.Clients))
	}
}

func TestMeta_SettleRequiresMount(t *testing.T) {
	var m Meta
	m.Settle()
	if m.Fresh {
		t.Fatalf("an unmounted screen must not be fresh")
	}
	m.Mounted()
	m.Settle()
	if !m.Fresh || m.Generation != 1 {
		t.Fatalf("expected fresh generation 1, got %+v", m)
	}
}

func TestConfirmation_Matches(t *testing.T) {
	var c *Confirmation
	if c.Matches("delete-project", "p1") {
		t.Fatalf("nil confirmation must not match")
	}
	c = &Confirmation{Action: "delete-project", TargetID: "p1"}
	if !c.Matches("delete-project", "p1") || c.Matches("delete-project", "p2") {
		t.Fatalf("unexpected match result")
	}
}
