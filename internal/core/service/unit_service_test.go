package service

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/view"
)

type unitFixture struct {
	units     *UnitService
	workflow  *WorkflowService
	backend   *stubBackend
	scheduler *stubScheduler
	id        identity.Identity
}

func newUnitFixture(t *testing.T) *unitFixture {
	t.Helper()
	b := newStubBackend()
	b.clients = []domain.Client{{ID: "c1", Name: "Sygma"}}
	b.projects = []domain.Project{{ID: "p1", ClientID: "c1"}}
	b.units = []domain.HousingUnit{{
		ID: "u1", ProjectID: "p1", Name: "Casa 1",
		Status: domain.Checklist{"Factibilidad": true},
		Images: []string{stubCDN + ImageBucket + "/u1-old.jpg"},
	}}
	views := newStubViewStore()
	f := &unitFixture{
		units:     NewUnitService(b, views, &stubScheduler{}, zerolog.Nop()),
		workflow:  NewWorkflowService(b, views, "electrix.com", zerolog.Nop()),
		backend:   b,
		id:        signedIn(domain.RoleWorker),
	}
	f.scheduler = f.units.cleanup.(*stubScheduler)
	if _, err := f.workflow.Show(context.Background(), f.id, "c1", "p1"); err != nil {
		t.Fatalf("mount: %v", err)
	}
	return f
}

func (f *unitFixture) unit(t *testing.T) (*view.Workflow, domain.HousingUnit) {
	t.Helper()
	v, err := f.units.views.peek(context.Background(), f.id.SessionID())
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	u, ok := v.Unit("u1")
	if !ok {
		t.Fatalf("unit u1 missing from view")
	}
	return v, u
}

func TestToggleStage_Commit(t *testing.T) {
	f := newUnitFixture(t)

	if err := f.units.ToggleStage(context.Background(), f.id, "u1", "TE1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	v, u := f.unit(t)
	if !u.Status["TE1"] || !u.Status["Factibilidad"] || len(u.Status) != 2 {
		t.Fatalf("expected only TE1 flipped, got %+v", u.Status)
	}
	if _, pending := v.Pending("u1", "TE1"); pending {
		t.Fatalf("toggle should no longer be pending")
	}
	if !f.backend.units[0].Status["TE1"] {
		t.Fatalf("backend not updated")
	}

	if err := f.units.ToggleStage(context.Background(), f.id, "u1", "TE1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, u = f.unit(t); u.Status["TE1"] {
		t.Fatalf("expected TE1 false after second toggle")
	}
}

func TestToggleStage_RollbackOnFailure(t *testing.T) {
	f := newUnitFixture(t)
	f.backend.fail["units.update"] = domain.ErrBackendUnavailable

	if err := f.units.ToggleStage(context.Background(), f.id, "u1", "Factibilidad"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	v, u := f.unit(t)
	if !u.Status["Factibilidad"] {
		t.Fatalf("confirmed value must survive a failed toggle")
	}
	if _, pending := v.Pending("u1", "Factibilidad"); pending {
		t.Fatalf("pending toggle must be rolled back")
	}
	if v.Request(view.Key("unit", "u1")) != view.Failed || v.Alert == nil {
		t.Fatalf("expected error state and alert, got %v %+v", v.Request(view.Key("unit", "u1")), v.Alert)
	}
}

func TestToggleStage_OverlappingFailureMatchesBackend(t *testing.T) {
	ctx := context.Background()
	f := newUnitFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var updates atomic.Int32
	f.backend.onCall = func(op string) {
		if op != "units.update" || updates.Add(1) != 1 {
			return
		}
		// The TE1 write stalls, and fails only after the TDA write went through.
		close(started)
		<-release
		f.backend.setFail("units.update", domain.ErrBackendUnavailable)
	}

	done := make(chan error, 1)
	go func() { done <- f.units.ToggleStage(ctx, f.id, "u1", "TE1") }()
	<-started

	if err := f.units.ToggleStage(ctx, f.id, "u1", "TDA"); err != nil {
		t.Fatalf("toggle TDA: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("toggle TE1: %v", err)
	}

	v, u := f.unit(t)
	f.backend.mu.Lock()
	remote := f.backend.units[0].Status.Clone()
	f.backend.mu.Unlock()

	for _, stage := range domain.Stages {
		if u.Status[stage] != remote[stage] {
			t.Fatalf("stage %s diverges: local=%v backend=%v", stage, u.Status, remote)
		}
	}
	if !u.Status["TE1"] || !u.Status["TDA"] {
		t.Fatalf("expected the TDA write to commit TE1 too, got %v", u.Status)
	}
	if _, pending := v.Pending("u1", "TE1"); pending {
		t.Fatalf("failed toggle must not stay pending")
	}
}

func TestToggleStage_UnknownStageIgnored(t *testing.T) {
	f := newUnitFixture(t)

	if err := f.units.ToggleStage(context.Background(), f.id, "u1", "Pintura"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if f.backend.count("units.update") != 0 {
		t.Fatalf("unknown stage must not reach the backend")
	}
}

func TestUploadImage_Links(t *testing.T) {
	f := newUnitFixture(t)

	err := f.units.UploadImage(context.Background(), f.id, "u1", Upload{
		Filename: "Foto.JPG", ContentType: "image/jpeg", Body: strings.NewReader("img"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	_, u := f.unit(t)
	if len(u.Images) != 2 {
		t.Fatalf("expected image appended, got %v", u.Images)
	}
	url := u.Images[1]
	if !strings.HasPrefix(url, stubCDN+ImageBucket+"/u1-") || !strings.HasSuffix(url, ".jpg") {
		t.Fatalf("unexpected url %q", url)
	}
	if len(f.backend.objects) != 1 {
		t.Fatalf("expected one stored object, got %d", len(f.backend.objects))
	}
}

func TestUploadImage_CompensatesOnLinkFailure(t *testing.T) {
	f := newUnitFixture(t)
	f.backend.fail["units.update"] = domain.ErrForbidden

	err := f.units.UploadImage(context.Background(), f.id, "u1", Upload{
		Filename: "foto.png", ContentType: "image/png", Body: strings.NewReader("img"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if f.backend.count("storage.upload") != 1 || f.backend.count("storage.remove") != 1 {
		t.Fatalf("expected upload followed by compensating remove, calls=%v", f.backend.calls)
	}
	if len(f.backend.objects) != 0 {
		t.Fatalf("orphaned object left behind")
	}
	v, u := f.unit(t)
	if len(u.Images) != 1 || v.Alert == nil || v.Alert.Title != "Error al subir imagen" {
		t.Fatalf("unexpected state images=%v alert=%+v", u.Images, v.Alert)
	}
}

func TestUploadImage_UploadFailureSkipsLink(t *testing.T) {
	f := newUnitFixture(t)
	f.backend.fail["storage.upload"] = domain.ErrBackendUnavailable

	_ = f.units.UploadImage(context.Background(), f.id, "u1", Upload{Filename: "a.jpg", Body: strings.NewReader("x")})

	if f.backend.count("units.update") != 0 || f.backend.count("storage.remove") != 0 {
		t.Fatalf("nothing to link or compensate, calls=%v", f.backend.calls)
	}
}

func TestDeleteImage_UnlinksAndSchedulesRemoval(t *testing.T) {
	ctx := context.Background()
	f := newUnitFixture(t)
	url := stubCDN + ImageBucket + "/u1-old.jpg"
	f.backend.objects[ImageBucket+"/u1-old.jpg"] = []byte("x")

	if err := f.units.DeleteImage(ctx, f.id, "u1", url, false); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if f.backend.count("units.update") != 0 {
		t.Fatalf("unlinked before confirmation")
	}
	if err := f.units.DeleteImage(ctx, f.id, "u1", url, true); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, u := f.unit(t); len(u.Images) != 0 {
		t.Fatalf("expected image unlinked, got %v", u.Images)
	}
	if len(f.scheduler.keys) != 1 || f.scheduler.keys[0] != "u1-old.jpg" {
		t.Fatalf("expected removal scheduled, got %v", f.scheduler.keys)
	}
	if err := f.scheduler.tasks[0](ctx); err != nil {
		t.Fatalf("cleanup task: %v", err)
	}
	if len(f.backend.objects) != 0 {
		t.Fatalf("object not removed by cleanup task")
	}
}

func TestSaveCommentAndRename(t *testing.T) {
	ctx := context.Background()
	f := newUnitFixture(t)

	if err := f.units.SaveComment(ctx, f.id, "u1", "Falta medidor"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if err := f.units.Rename(ctx, f.id, "u1", "Casa 1A"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := f.units.Rename(ctx, f.id, "u1", " "); err != nil {
		t.Fatalf("rename: %v", err)
	}

	_, u := f.unit(t)
	if u.Comments != "Falta medidor" || u.Name != "Casa 1A" {
		t.Fatalf("unexpected unit %+v", u)
	}
	if f.backend.count("units.update") != 2 {
		t.Fatalf("blank rename must be ignored, got %d updates", f.backend.count("units.update"))
	}
}

func TestObjectName(t *testing.T) {
	name := objectName("u1", "photo.JPEG")
	if !strings.HasPrefix(name, "u1-") || !strings.HasSuffix(name, ".jpeg") {
		t.Fatalf("unexpected object name %q", name)
	}
	if name2 := objectName("u1", "noext"); !strings.HasSuffix(name2, ".bin") {
		t.Fatalf("expected .bin fallback, got %q", name2)
	}
}
