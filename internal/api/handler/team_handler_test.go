package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/service"
	"github.com/electrix/tracker/internal/core/view"
)

type stubTeam struct {
	calls      []string
	registerFn func(ctx context.Context, id identity.Identity, in service.RegisterInput) (*domain.Profile, error)
}

func (s *stubTeam) Show(ctx context.Context, id identity.Identity) (*view.Team, error) {
	return &view.Team{Profiles: []domain.Profile{
		{ID: "me", FullName: "Ana", RUT: "1-9", Role: domain.RoleSupervisor, Active: true},
		{ID: "p2", FullName: "Luis", RUT: "2-7", Role: domain.RoleWorker, Active: true},
	}}, nil
}

func (s *stubTeam) ChangeRole(ctx context.Context, id identity.Identity, profileID string, role domain.Role) error {
	s.calls = append(s.calls, "role:"+profileID+":"+string(role))
	return nil
}

func (s *stubTeam) ToggleActive(ctx context.Context, id identity.Identity, profileID string, confirmed bool) error {
	if confirmed {
		s.calls = append(s.calls, "active!:"+profileID)
	} else {
		s.calls = append(s.calls, "active:"+profileID)
	}
	return nil
}

func (s *stubTeam) Delete(ctx context.Context, id identity.Identity, profileID string, confirmed bool) error {
	s.calls = append(s.calls, "delete:"+profileID)
	return nil
}

func (s *stubTeam) OpenReset(ctx context.Context, id identity.Identity, profileID string) error {
	s.calls = append(s.calls, "reset:"+profileID)
	return nil
}

func (s *stubTeam) ResetPassword(ctx context.Context, id identity.Identity, profileID, password string) error {
	s.calls = append(s.calls, "password:"+profileID)
	return nil
}

func (s *stubTeam) Register(ctx context.Context, id identity.Identity, in service.RegisterInput) (*domain.Profile, error) {
	return s.registerFn(ctx, id, in)
}

func (s *stubTeam) Dismiss(ctx context.Context, id identity.Identity) error {
	s.calls = append(s.calls, "dismiss")
	return nil
}

func TestTeamHandler_ShowFilters(t *testing.T) {
	e := newTestEcho(t)
	h := NewTeamHandler(&stubTeam{}, zerolog.Nop())

	rec, c := request(e, http.MethodGet, "/team?q=luis", nil, signedIn(domain.RoleSupervisor))
	if err := h.Show(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Luis") || strings.Contains(body, "<td>1-9</td>") {
		t.Fatalf("expected only the matching profile")
	}
}

func TestTeamHandler_Register_Success(t *testing.T) {
	e := newTestEcho(t)
	stub := &stubTeam{
		registerFn: func(ctx context.Context, id identity.Identity, in service.RegisterInput) (*domain.Profile, error) {
			if in.RUT != "12345678-5" || in.FullName != "Luis Soto" || in.Role != domain.RoleWorker || in.Password != "secret1" {
				t.Fatalf("unexpected input %+v", in)
			}
			return &domain.Profile{ID: "new"}, nil
		},
	}
	h := NewTeamHandler(stub, zerolog.Nop())

	body := strings.NewReader("full_name=Luis+Soto&rut=12345678-5&role=trabajador&password=secret1")
	rec, c := request(e, http.MethodPost, "/register", body, signedIn(domain.RoleSupervisor))
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectRedirect(t, rec, "/team")
}

func TestTeamHandler_Register_Rejected(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		want   string
	}{
		{"short password", "full_name=L&rut=1-9&role=trabajador&password=123", nil, http.StatusUnprocessableEntity, "al menos 6 caracteres"},
		{"client role", "full_name=L&rut=1-9&role=cliente&password=secret1", nil, http.StatusUnprocessableEntity, "El campo Rol"},
		{"not supervisor", "full_name=L&rut=1-9&role=trabajador&password=secret1", domain.ErrForbidden, http.StatusForbidden, "No tienes permisos"},
		{"existing rut", "full_name=L&rut=1-9&role=trabajador&password=secret1", domain.ErrConflict, http.StatusConflict, "Ya existe un usuario"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEcho(t)
			stub := &stubTeam{
				registerFn: func(ctx context.Context, id identity.Identity, in service.RegisterInput) (*domain.Profile, error) {
					if tc.err == nil {
						t.Fatalf("invalid form must not reach the service")
					}
					return nil, tc.err
				},
			}
			h := NewTeamHandler(stub, zerolog.Nop())

			rec, c := request(e, http.MethodPost, "/register", strings.NewReader(tc.body), signedIn(domain.RoleSupervisor))
			if err := h.Register(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Fatalf("expected %q in page", tc.want)
			}
			if strings.Contains(rec.Body.String(), "secret1") {
				t.Fatalf("password must not be echoed back")
			}
		})
	}
}

func TestTeamHandler_ConfirmAndBack(t *testing.T) {
	e := newTestEcho(t)
	stub := &stubTeam{}
	h := NewTeamHandler(stub, zerolog.Nop())

	rec, c := request(e, http.MethodPost, "/team/confirm", strings.NewReader("action=toggle_active&target=p2"), signedIn(domain.RoleSupervisor))
	c.Request().Header.Set("Referer", "http://example.com/team?q=luis")
	if err := h.Confirm(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	expectRedirect(t, rec, "/team?q=luis")
	if len(stub.calls) != 1 || stub.calls[0] != "active!:p2" {
		t.Fatalf("unexpected calls %v", stub.calls)
	}
}

func TestTeamHandler_ChangeRole(t *testing.T) {
	e := newTestEcho(t)
	stub := &stubTeam{}
	h := NewTeamHandler(stub, zerolog.Nop())

	rec, c := request(e, http.MethodPost, "/team/p2/role", strings.NewReader("role=supervisor"), signedIn(domain.RoleSupervisor))
	c.SetParamNames("id")
	c.SetParamValues("p2")
	if err := h.ChangeRole(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	expectRedirect(t, rec, "/team")
	if len(stub.calls) != 1 || stub.calls[0] != "role:p2:supervisor" {
		t.Fatalf("unexpected calls %v", stub.calls)
	}
}
