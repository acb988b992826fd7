package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/ports"
	"github.com/electrix/tracker/internal/core/view"
	"github.com/electrix/tracker/pkg/format"
)

const screenTeam = "team"

// ResetPasswordProcedure is the privileged backend procedure that sets
// another identity's password.
const ResetPasswordProcedure = "admin_reset_password"

// RegisterInput is the staff registration form.
type RegisterInput struct {
	RUT      string
	FullName string
	Role     domain.Role
	Password string
}

// TeamService manages the roster. Every mutation requires a supervisor.
type TeamService struct {
	backend     ports.Backend
	views       screenStore[view.Team, *view.Team]
	emailDomain string
	log         zerolog.Logger
}

func NewTeamService(backend ports.Backend, views ports.ViewStore, emailDomain string, log zerolog.Logger) *TeamService {
	return &TeamService{
		backend:     backend,
		views:       newScreenStore[view.Team](views, screenTeam, log),
		emailDomain: emailDomain,
		log:         log,
	}
}

func (s *TeamService) Show(ctx context.Context, id identity.Identity) (*view.Team, error) {
	return s.views.show(ctx, id.SessionID(),
		func(*view.Team) bool { return true },
		func(ctx context.Context, v *view.Team) error {
			profiles, err := s.backend.As(id.Auth()).Profiles().List(ctx)
			v.Profiles = profiles
			if err != nil {
				return fmt.Errorf("list profiles: %w", err)
			}
			return nil
		})
}

// ChangeRole assigns a new role to another identity.
func (s *TeamService) ChangeRole(ctx context.Context, id identity.Identity, profileID string, role domain.Role) error {
	if !role.Valid() || isSelf(id, profileID) {
		return nil
	}
	patch := domain.ProfilePatch{Role: &role}

	return s.views.mutate(ctx, id.SessionID(), mutation[*view.Team]{
		action: "change_role",
		key:    view.Key("profile", profileID),
		call: func(ctx context.Context) (func(*view.Team), error) {
			if !id.IsSupervisor() {
				return nil, domain.ErrForbidden
			}
			if err := s.backend.As(id.Auth()).Profiles().Update(ctx, profileID, patch); err != nil {
				return nil, err
			}
			return func(v *view.Team) {
				if p, ok := v.Find(profileID); ok {
					p.Role = role
					v.Replace(p)
				}
			}, nil
		},
	})
}

// ToggleActive enables or disables another identity once confirmed.
func (s *TeamService) ToggleActive(ctx context.Context, id identity.Identity, profileID string, confirmed bool) error {
	if isSelf(id, profileID) {
		return nil
	}
	sid := id.SessionID()
	v, err := s.views.peek(ctx, sid)
	if err != nil {
		return err
	}
	target, found := v.Find(profileID)
	if !found {
		return nil
	}
	prompt := "¿Desactivar a " + target.DisplayName() + "? No podrá iniciar sesión."
	if !target.Active {
		prompt = "¿Activar a " + target.DisplayName() + "?"
	}
	ok, err := s.views.confirm(ctx, sid, view.Confirmation{Action: "toggle_active", TargetID: profileID, Prompt: prompt}, confirmed)
	if err != nil || !ok {
		return err
	}

	active := !target.Active
	patch := domain.ProfilePatch{Active: &active}
	return s.views.mutate(ctx, sid, mutation[*view.Team]{
		action: "toggle_active",
		key:    view.Key("profile", profileID),
		call: func(ctx context.Context) (func(*view.Team), error) {
			if !id.IsSupervisor() {
				return nil, domain.ErrForbidden
			}
			if err := s.backend.As(id.Auth()).Profiles().Update(ctx, profileID, patch); err != nil {
				return nil, err
			}
			return func(v *view.Team) {
				if p, ok := v.Find(profileID); ok {
					p.Active = active
					v.Replace(p)
				}
			}, nil
		},
	})
}

// Delete permanently removes another identity's profile once confirmed.
func (s *TeamService) Delete(ctx context.Context, id identity.Identity, profileID string, confirmed bool) error {
	if isSelf(id, profileID) {
		return nil
	}
	sid := id.SessionID()
	ok, err := s.views.confirm(ctx, sid, view.Confirmation{
		Action:   "delete_profile",
		TargetID: profileID,
		Prompt:   "¿Eliminar permanentemente este usuario? Esta acción no se puede deshacer.",
	}, confirmed)
	if err != nil || !ok {
		return err
	}

	return s.views.mutate(ctx, sid, mutation[*view.Team]{
		action: "delete_profile",
		key:    view.Key("profile", profileID),
		call: func(ctx context.Context) (func(*view.Team), error) {
			if !id.IsSupervisor() {
				return nil, domain.ErrForbidden
			}
			if err := s.backend.As(id.Auth()).Profiles().Delete(ctx, profileID); err != nil {
				return nil, err
			}
			return func(v *view.Team) { v.Remove(profileID) }, nil
		},
	})
}

// OpenReset shows the password form for profileID; an empty id closes it.
func (s *TeamService) OpenReset(ctx context.Context, id identity.Identity, profileID string) error {
	_, err := s.views.update(ctx, id.SessionID(), func(v *view.Team) error {
		v.ResetID = profileID
		v.Settle()
		return nil
	})
	return err
}

// ResetPassword sets another identity's password through the privileged
// backend procedure.
func (s *TeamService) ResetPassword(ctx context.Context, id identity.Identity, profileID, password string) error {
	sid := id.SessionID()
	if len(password) < MinPasswordLength {
		return s.views.alert(ctx, sid, view.Alert{
			Title:   "Error",
			Message: fmt.Sprintf("La contraseña debe tener al menos %d caracteres.", MinPasswordLength),
		})
	}

	return s.views.mutate(ctx, sid, mutation[*view.Team]{
		action: "reset_password",
		key:    view.Key("profile", profileID),
		call: func(ctx context.Context) (func(*view.Team), error) {
			if !id.IsSupervisor() {
				return nil, domain.ErrForbidden
			}
			_, err := s.backend.As(id.Auth()).Procedures().Call(ctx, ResetPasswordProcedure, map[string]any{
				"target_user_id": profileID,
				"new_password":   password,
			})
			if err != nil {
				return nil, err
			}
			s.log.Info().Str("target_user_id", profileID).Msg("password reset")
			return func(v *view.Team) {
				v.ResetID = ""
				v.Alert = &view.Alert{Title: "Listo", Message: "Contraseña actualizada correctamente.", Success: true}
			}, nil
		},
	})
}

// Register creates a worker or supervisor account. Input problems are
// returned to the caller; the new profile is added to the roster.
func (s *TeamService) Register(ctx context.Context, id identity.Identity, in RegisterInput) (*domain.Profile, error) {
	if !id.IsSupervisor() {
		return nil, domain.ErrForbidden
	}
	fullName := strings.TrimSpace(in.FullName)
	switch {
	case len(format.CleanRUT(in.RUT)) < 2:
		return nil, inputError("Ingresa un RUT válido.")
	case fullName == "":
		return nil, inputError("Ingresa el nombre completo.")
	case !in.Role.IsStaff():
		return nil, inputError("Selecciona un rol válido.")
	case len(in.Password) < MinPasswordLength:
		return nil, inputError(fmt.Sprintf("La contraseña debe tener al menos %d caracteres.", MinPasswordLength))
	}

	created, err := issueAccount(ctx, s.backend, id.Auth(), in.Password, domain.Profile{
		RUT:      format.FormatRUT(in.RUT),
		FullName: fullName,
		Role:     in.Role,
	}, s.emailDomain)
	if err != nil {
		s.log.Error().Err(err).Msg("registration failed")
		return nil, err
	}
	s.log.Info().Str("user_id", created.ID).Str("role", string(created.Role)).Msg("user registered")

	_, err = s.views.update(ctx, id.SessionID(), func(v *view.Team) error {
		if v.IsMounted() {
			v.Profiles = append([]domain.Profile{*created}, v.Profiles...)
		}
		v.Alert = &view.Alert{Title: "Listo", Message: "¡Usuario registrado con éxito!", Success: true}
		v.Settle()
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to update team view")
	}
	return created, nil
}

func (s *TeamService) Dismiss(ctx context.Context, id identity.Identity) error {
	return s.views.dismiss(ctx, id.SessionID())
}

func isSelf(id identity.Identity, profileID string) bool {
	return id.Profile != nil && id.Profile.ID == profileID
}
