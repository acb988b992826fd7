package ports

import (
	"context"

	"github.com/electrix/tracker/internal/core/domain"
)

// SessionStore keeps browser sessions of this application.
type SessionStore interface {
	Save(ctx context.Context, s *domain.Session) error
	// Get yields domain.ErrSessionNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

// ViewStore keeps the serialized screen state of each browser session.
type ViewStore interface {
	// Get yields domain.ErrViewNotFound when the screen has no state.
	Get(ctx context.Context, sessionID, screen string) ([]byte, error)
	Set(ctx context.Context, sessionID, screen string, data []byte) error
	// Update atomically replaces the screen state with fn's result. fn
	// receives nil when there is no state yet and may be called more than
	// once when a concurrent write is detected. A nil result leaves the
	// state unchanged.
	Update(ctx context.Context, sessionID, screen string, fn func(current []byte) ([]byte, error)) error
	// Clear drops every screen of the session.
	Clear(ctx context.Context, sessionID string) error
}

// TaskScheduler runs best-effort background work, serialised per key.
type TaskScheduler interface {
	Schedule(key string, run func(ctx context.Context) error)
}

// SubmissionGuard detects a form posted more than once.
type SubmissionGuard interface {
	// First reports whether nonce is seen for the first time in the session.
	First(ctx context.Context, sessionID, nonce string) (bool, error)
}
