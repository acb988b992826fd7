package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/electrix/tracker/internal/core/domain"
)

type authClient struct {
	c *Client
}

// tokenResponse is the session payload of the auth API. Sign-up without an
// immediate session returns the bare user instead, which lands in the
// embedded fields.
type tokenResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresIn    int64            `json:"expires_in"`
	ExpiresAt    int64            `json:"expires_at"`
	User         *domain.AuthUser `json:"user"`

	ID       string              `json:"id"`
	Email    string              `json:"email"`
	Metadata domain.UserMetadata `json:"user_metadata"`
}

func (t tokenResponse) session(now time.Time) *domain.AuthSession {
	s := &domain.AuthSession{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0).UTC()
	case t.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	}
	if t.User != nil {
		s.User = *t.User
	} else {
		s.User = domain.AuthUser{ID: t.ID, Email: t.Email, Metadata: t.Metadata}
	}
	return s
}

func (a *authClient) SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	var out tokenResponse
	err := a.c.do(ctx, request{
		op:     "auth.sign_in",
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &out)
	if err != nil {
		if status(err) == http.StatusBadRequest || status(err) == http.StatusUnauthorized {
			return nil, fmt.Errorf("sign in: %w", domain.ErrInvalidCredentials)
		}
		return nil, err
	}
	return out.session(time.Now()), nil
}

func (a *authClient) Refresh(ctx context.Context, refreshToken string) (*domain.AuthSession, error) {
	var out tokenResponse
	err := a.c.do(ctx, request{
		op:     "auth.refresh",
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
	}, &out)
	if err != nil {
		if s := status(err); s >= http.StatusBadRequest && s < http.StatusInternalServerError {
			return nil, fmt.Errorf("refresh: %w", domain.ErrUnauthenticated)
		}
		return nil, err
	}
	return out.session(time.Now()), nil
}

// SignOut revokes the session. A token the backend no longer accepts is
// already signed out.
func (a *authClient) SignOut(ctx context.Context, accessToken string) error {
	err := a.c.do(ctx, request{
		op:     "auth.sign_out",
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		token:  accessToken,
	}, nil)
	if errors.Is(err, domain.ErrUnauthenticated) || errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (a *authClient) SignUp(ctx context.Context, email, password string, meta domain.UserMetadata) (*domain.AuthSession, error) {
	var out tokenResponse
	err := a.c.do(ctx, request{
		op:     "auth.sign_up",
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body: map[string]any{
			"email":    email,
			"password": password,
			"data":     meta,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	s := out.session(time.Now())
	if s.User.ID == "" {
		return nil, fmt.Errorf("sign up: response carries no user id")
	}
	return s, nil
}

// status extracts the HTTP status of a backend error, or 0.
func status(err error) int {
	var e *apiError
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
