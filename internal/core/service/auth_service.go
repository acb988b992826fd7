package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/identity"
	"github.com/electrix/tracker/internal/core/ports"
	"github.com/electrix/tracker/pkg/format"
	"github.com/electrix/tracker/pkg/metrics"
)

// AuthService establishes, resolves and terminates browser sessions.
type AuthService struct {
	backend     ports.Backend
	sessions    ports.SessionStore
	views       ports.ViewStore
	emailDomain string
	now         func() time.Time
	log         zerolog.Logger
}

func NewAuthService(backend ports.Backend, sessions ports.SessionStore, views ports.ViewStore, emailDomain string, log zerolog.Logger) *AuthService {
	return &AuthService{
		backend:     backend,
		sessions:    sessions,
		views:       views,
		emailDomain: emailDomain,
		now:         time.Now,
		log:         log,
	}
}

// SignIn authenticates a RUT/password pair and opens a browser session. The
// profile is fetched as part of the sign-in: an account without a profile or
// with an inactive one never gets a session.
func (s *AuthService) SignIn(ctx context.Context, rut, password string) (*domain.Session, error) {
	if format.CleanRUT(rut) == "" || password == "" {
		metrics.SignInsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	auth, err := s.backend.Auth().SignIn(ctx, format.LoginEmail(rut, s.emailDomain), password)
	if err != nil {
		metrics.SignInsTotal.WithLabelValues(signInResult(err)).Inc()
		return nil, err
	}

	profile, err := s.profile(ctx, auth)
	if err != nil {
		metrics.SignInsTotal.WithLabelValues(signInResult(err)).Inc()
		s.revoke(ctx, auth)
		return nil, err
	}

	sess := &domain.Session{ID: uuid.NewString(), Auth: *auth, CreatedAt: s.now().UTC()}
	if err := s.sessions.Save(ctx, sess); err != nil {
		metrics.SignInsTotal.WithLabelValues("error").Inc()
		s.revoke(ctx, auth)
		return nil, fmt.Errorf("save session: %w", err)
	}

	metrics.SignInsTotal.WithLabelValues("ok").Inc()
	s.log.Info().Str("user_id", profile.ID).Str("role", string(profile.Role)).Msg("signed in")
	return sess, nil
}

// Resolve turns a browser session id into the viewer of the current request.
// It renews an expired backend token and re-reads the profile, so role and
// active flag changes apply on the next navigation.
//
// A returned error is ErrAccountDisabled or ErrProfileMissing (the session
// has been terminated) or a session store failure.
func (s *AuthService) Resolve(ctx context.Context, sessionID string) (identity.Identity, error) {
	if sessionID == "" {
		return identity.Anonymous, nil
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return identity.Anonymous, nil
	}
	if err != nil {
		return identity.Anonymous, fmt.Errorf("load session: %w", err)
	}

	if sess.Auth.Expired(s.now()) {
		renewed, err := s.backend.Auth().Refresh(ctx, sess.Auth.RefreshToken)
		switch {
		case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidCredentials):
			metrics.SessionEventsTotal.WithLabelValues("refresh_failed").Inc()
			s.log.Info().Str("user_id", sess.Auth.User.ID).Msg("session expired")
			s.drop(ctx, sessionID)
			return identity.Anonymous, nil
		case err != nil:
			metrics.SessionEventsTotal.WithLabelValues("refresh_unavailable").Inc()
			s.log.Warn().Err(err).Msg("token refresh unavailable")
			return identity.Identity{State: identity.Loading, Session: sess}, nil
		}
		sess.Auth = *renewed
		if err := s.sessions.Save(ctx, sess); err != nil {
			return identity.Anonymous, fmt.Errorf("save session: %w", err)
		}
		metrics.SessionEventsTotal.WithLabelValues("refreshed").Inc()
	}

	profile, err := s.profile(ctx, &sess.Auth)
	switch {
	case errors.Is(err, domain.ErrAccountDisabled), errors.Is(err, domain.ErrProfileMissing):
		s.log.Warn().Err(err).Str("user_id", sess.Auth.User.ID).Msg("terminating session")
		s.revoke(ctx, &sess.Auth)
		s.drop(ctx, sessionID)
		return identity.Anonymous, err
	case errors.Is(err, domain.ErrUnauthenticated):
		s.drop(ctx, sessionID)
		return identity.Anonymous, nil
	case err != nil:
		metrics.SessionEventsTotal.WithLabelValues("profile_unavailable").Inc()
		s.log.Warn().Err(err).Str("user_id", sess.Auth.User.ID).Msg("profile unavailable")
		return identity.Identity{State: identity.Loading, Session: sess, User: &sess.Auth.User}, nil
	}

	return identity.Identity{
		State:   identity.Authenticated,
		Session: sess,
		User:    &sess.Auth.User,
		Profile: profile,
	}, nil
}

// SignOut terminates the backend session and forgets the browser session
// together with every cached screen.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
	case err != nil:
		return fmt.Errorf("load session: %w", err)
	default:
		s.revoke(ctx, &sess.Auth)
	}
	s.drop(ctx, sessionID)
	metrics.SessionEventsTotal.WithLabelValues("signed_out").Inc()
	return nil
}

func (s *AuthService) profile(ctx context.Context, auth *domain.AuthSession) (*domain.Profile, error) {
	p, err := s.backend.As(auth).Profiles().Get(ctx, auth.User.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrProfileMissing
	}
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, domain.ErrAccountDisabled
	}
	return p, nil
}

func (s *AuthService) revoke(ctx context.Context, auth *domain.AuthSession) {
	if err := s.backend.Auth().SignOut(ctx, auth.AccessToken); err != nil {
		s.log.Warn().Err(err).Str("user_id", auth.User.ID).Msg("backend sign-out failed")
	}
}

func (s *AuthService) drop(ctx context.Context, sessionID string) {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Msg("failed to delete session")
	}
	if err := s.views.Clear(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear view state")
	}
}

func signInResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountDisabled):
		return "disabled"
	case errors.Is(err, domain.ErrProfileMissing):
		return "no_profile"
	default:
		return "error"
	}
}

// issueAccount creates a new auth identity through a throwaway backend client,
// so the caller's own session is never replaced, and stores its profile as
// the new identity. A profile already created by the backend counts as done.
func issueAccount(ctx context.Context, backend ports.Backend, caller *domain.AuthSession, password string, p domain.Profile, emailDomain string) (*domain.Profile, error) {
	created, err := backend.Ephemeral().SignUp(ctx, format.LoginEmail(p.RUT, emailDomain), password, domain.UserMetadata{
		FullName: p.FullName,
		RUT:      p.RUT,
		Role:     p.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	p.ID = created.User.ID
	p.Active = true
	owner := caller
	if created.AccessToken != "" {
		owner = created
	}
	stored, err := backend.As(owner).Profiles().Insert(ctx, p)
	if errors.Is(err, domain.ErrConflict) {
		return &p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return stored, nil
}
