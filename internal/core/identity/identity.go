// Package identity models who is looking at a page and decides where they
// may go.
package identity

import (
	"context"

	"github.com/electrix/tracker/internal/core/domain"
)

// State is the resolution state of the current viewer.
type State int

const (
	Unauthenticated State = iota
	// Loading means a session exists but its profile could not be fetched
	// yet. No access decision is taken in this state.
	Loading
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Identity is the resolved viewer of one request. It is written once by the
// session middleware and read everywhere else.
type Identity struct {
	State   State
	Session *domain.Session
	User    *domain.AuthUser
	Profile *domain.Profile
}

// Anonymous is the identity of a request without a usable session.
var Anonymous = Identity{State: Unauthenticated}

// Role is taken from the profile only. It is empty until the profile loads.
func (i Identity) Role() domain.Role {
	if i.State != Authenticated || i.Profile == nil {
		return ""
	}
	return i.Profile.Role
}

func (i Identity) IsSupervisor() bool { return i.Role() == domain.RoleSupervisor }

func (i Identity) IsClient() bool { return i.Role() == domain.RoleClient }

// SessionID is the browser session id, or "" without a session.
func (i Identity) SessionID() string {
	if i.Session == nil {
		return ""
	}
	return i.Session.ID
}

// Auth is the backend session the viewer's data calls are authorised with.
func (i Identity) Auth() *domain.AuthSession {
	if i.Session == nil {
		return nil
	}
	return &i.Session.Auth
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok {
		return Anonymous
	}
	return id
}
