// Package backend holds what the backend drivers share. The drivers live in
// the rest and mongo subpackages.
package backend

import (
	"errors"
	"time"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/pkg/metrics"
)

// Observe records the outcome and latency of one backend call. Use it as
//
//	defer func(start time.Time) { backend.Observe(op, start, err) }(time.Now())
func Observe(op string, start time.Time, err error) {
	metrics.BackendCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.BackendCallsTotal.WithLabelValues(op, Outcome(err)).Inc()
}

// Outcome classifies err into a metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrBackendUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
