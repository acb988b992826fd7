package ports

import (
	"context"
	"encoding/json"
	"io"

	"github.com/electrix/tracker/internal/core/domain"
)

// AuthGateway authenticates identities against the backend service.
type AuthGateway interface {
	// SignIn exchanges credentials for a backend session.
	// Bad credentials yield domain.ErrInvalidCredentials.
	SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error)
	// Refresh renews an expired session. An unusable refresh token yields
	// domain.ErrUnauthenticated.
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthSession, error)
	// SignOut terminates the session the access token belongs to.
	SignOut(ctx context.Context, accessToken string) error
}

// CredentialIssuer creates a new auth identity without persisting the
// resulting session anywhere. It must never replace the caller's own session.
type CredentialIssuer interface {
	// SignUp registers email/password and returns the new identity. The
	// session is returned when the backend issues one immediately (the
	// AccessToken is empty otherwise).
	SignUp(ctx context.Context, email, password string, meta domain.UserMetadata) (*domain.AuthSession, error)
}

// Backend is the external backend-as-a-service: authentication, records,
// file storage and privileged procedures.
type Backend interface {
	Auth() AuthGateway
	// Ephemeral returns a non-persisting auth client whose lifetime is a
	// single credential-issuance call.
	Ephemeral() CredentialIssuer
	// As returns a data gateway whose calls are authorised as the owner of
	// the session. Row-level policies are evaluated by the backend.
	As(session *domain.AuthSession) Gateway
}

// Gateway groups the record, storage and procedure primitives available to
// one authenticated identity.
type Gateway interface {
	Profiles() ProfileRepository
	Clients() ClientRepository
	Projects() ProjectRepository
	HousingUnits() HousingUnitRepository
	Transactions() TransactionRepository
	Storage() ObjectStorage
	Procedures() ProcedureCaller
}

// ObjectStorage stores binary objects in named buckets.
type ObjectStorage interface {
	// Upload stores r under bucket/path and returns the stored path.
	Upload(ctx context.Context, bucket, path, contentType string, r io.Reader) (string, error)
	// PublicURL is the unauthenticated download URL of bucket/path.
	PublicURL(bucket, path string) string
	// PathFromURL reverses PublicURL. ok is false for foreign URLs.
	PathFromURL(bucket, url string) (path string, ok bool)
	Remove(ctx context.Context, bucket, path string) error
}

// ProcedureCaller invokes backend remote procedures, some of which run with
// elevated privileges the ordinary record API does not have.
type ProcedureCaller interface {
	Call(ctx context.Context, name string, args map[string]any) (json.RawMessage, error)
}
