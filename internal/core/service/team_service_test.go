package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/core/domain"
)

func newTeamFixture() (*TeamService, *stubBackend) {
	b := newStubBackend()
	b.profiles["me"] = domain.Profile{ID: "me", FullName: "Yo", Role: domain.RoleSupervisor, Active: true}
	b.profiles["w1"] = domain.Profile{ID: "w1", FullName: "Luis", Role: domain.RoleWorker, Active: true}
	return NewTeamService(b, newStubViewStore(), "electrix.com", zerolog.Nop()), b
}

func TestTeam_ChangeRole(t *testing.T) {
	ctx := context.Background()
	svc, b := newTeamFixture()
	id := signedIn(domain.RoleSupervisor)
	if _, err := svc.Show(ctx, id); err != nil {
		t.Fatalf("mount: %v", err)
	}

	if err := svc.ChangeRole(ctx, id, "w1", domain.RoleSupervisor); err != nil {
		t.Fatalf("change role: %v", err)
	}
	if err := svc.ChangeRole(ctx, id, "me", domain.RoleWorker); err != nil {
		t.Fatalf("change own role: %v", err)
	}

	if b.profiles["w1"].Role != domain.RoleSupervisor {
		t.Fatalf("role not updated")
	}
	if b.profiles["me"].Role != domain.RoleSupervisor || b.count("profiles.update") != 1 {
		t.Fatalf("own role must not change")
	}
	v, _ := svc.Show(ctx, id)
	p, _ := v.Find("w1")
	if p.Role != domain.RoleSupervisor {
		t.Fatalf("view not spliced: %+v", p)
	}
}

func TestTeam_WorkerCannotMutate(t *testing.T) {
	ctx := context.Background()
	svc, b := newTeamFixture()
	id := signedIn(domain.RoleWorker)
	if _, err := svc.Show(ctx, id); err != nil {
		t.Fatalf("mount: %v", err)
	}

	if err := svc.ChangeRole(ctx, id, "w1", domain.RoleSupervisor); err != nil {
		t.Fatalf("change role: %v", err)
	}
	if b.count("profiles.update") != 0 {
		t.Fatalf("worker reached the backend")
	}
	v, _ := svc.Show(ctx, id)
	if v.Alert == nil {
		t.Fatalf("expected forbidden alert")
	}
}

func TestTeam_ToggleActiveNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	svc, b := newTeamFixture()
	id := signedIn(domain.RoleSupervisor)
	if _, err := svc.Show(ctx, id); err != nil {
		t.Fatalf("mount: %v", err)
	}

	if err := svc.ToggleActive(ctx, id, "w1", false); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !b.profiles["w1"].Active {
		t.Fatalf("deactivated without confirmation")
	}
	if err := svc.ToggleActive(ctx, id, "w1", true); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if b.profiles["w1"].Active {
		t.Fatalf("expected w1 deactivated")
	}
	v, _ := svc.Show(ctx, id)
	if p, _ := v.Find("w1"); p.Active {
		t.Fatalf("view not spliced")
	}
}

func TestTeam_DeleteNotSelf(t *testing.T) {
	ctx := context.Background()
	svc, b := newTeamFixture()
	id := signedIn(domain.RoleSupervisor)
	if _, err := svc.Show(ctx, id); err != nil {
		t.Fatalf("mount: %v", err)
	}

	_ = svc.Delete(ctx, id, "me", true)
	_ = svc.Delete(ctx, id, "me", true)
	if b.count("profiles.delete") != 0 {
		t.Fatalf("self delete must be ignored")
	}

	_ = svc.Delete(ctx, id, "w1", false)
	_ = svc.Delete(ctx, id, "w1", true)
	if _, ok := b.profiles["w1"]; ok {
		t.Fatalf("expected w1 deleted")
	}
}

func TestTeam_ResetPassword(t *testing.T) {
	ctx := context.Background()
	svc, b := newTeamFixture()
	id := signedIn(domain.RoleSupervisor)
	if _, err := svc.Show(ctx, id); err != nil {
		t.Fatalf("mount: %v", err)
	}

	if err := svc.ResetPassword(ctx, id, "w1", "123"); err != nil {
		t.Fatalf("short: %v", err)
	}
	if len(b.procedures) != 0 {
		t.Fatalf("short password must not reach the backend")
	}

	if err := svc.ResetPassword(ctx, id, "w1", "nueva123"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(b.procedures) != 1 {
		t.Fatalf("expected one procedure call")
	}
	call := b.procedures[0]
	if call.name != "admin_reset_password" || call.args["target_user_id"] != "w1" || call.args["new_password"] != "nueva123" {
		t.Fatalf("unexpected call %+v", call)
	}
	v, _ := svc.Show(ctx, id)
	if v.Alert == nil || !v.Alert.Success {
		t.Fatalf("expected success alert, got %+v", v.Alert)
	}
}

func TestTeam_Register(t *testing.T) {
	ctx := context.Background()
	svc, b := newTeamFixture()
	id := signedIn(domain.RoleSupervisor)
	if _, err := svc.Show(ctx, id); err != nil {
		t.Fatalf("mount: %v", err)
	}

	created, err := svc.Register(ctx, id, RegisterInput{RUT: "7654321k", FullName: "Pedro", Role: domain.RoleWorker, Password: "abcdef"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.RUT != "7.654.321-K" || created.Role != domain.RoleWorker || !created.Active {
		t.Fatalf("unexpected profile %+v", created)
	}
	if len(b.signUps) != 1 || b.signUps[0] != "7654321k@electrix.com" {
		t.Fatalf("unexpected sign ups %v", b.signUps)
	}

	v, _ := svc.Show(ctx, id)
	if v.Profiles[0].ID != created.ID || v.Alert == nil || !v.Alert.Success {
		t.Fatalf("expected new profile at head with success alert")
	}
}

func TestTeam_RegisterRejects(t *testing.T) {
	svc, b := newTeamFixture()

	tests := []struct {
		name string
		role domain.Role
		in   RegisterInput
		want error
	}{
		{"worker caller", domain.RoleWorker, RegisterInput{RUT: "1-9", FullName: "x", Role: domain.RoleWorker, Password: "abcdef"}, domain.ErrForbidden},
		{"client role", domain.RoleSupervisor, RegisterInput{RUT: "1-9", FullName: "x", Role: domain.RoleClient, Password: "abcdef"}, nil},
		{"short password", domain.RoleSupervisor, RegisterInput{RUT: "1-9", FullName: "x", Role: domain.RoleWorker, Password: "abc"}, nil},
		{"no name", domain.RoleSupervisor, RegisterInput{RUT: "1-9", Role: domain.RoleWorker, Password: "abcdef"}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), signedIn(tc.role), tc.in)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var ie inputError
			if tc.want == nil && !errors.As(err, &ie) {
				t.Fatalf("expected input error, got %v", err)
			}
		})
	}
	if b.count("auth.sign_up") != 0 {
		t.Fatalf("rejected registrations must not reach the backend")
	}
}
