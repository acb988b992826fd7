package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/infrastructure/backend"
)

// mapErr translates driver errors into the domain taxonomy.
func mapErr(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrBackendUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func observe(op string, start time.Time, errp *error) {
	backend.Observe(op, start, *errp)
}
