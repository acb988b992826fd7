package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrForbidden          = errors.New("access forbidden")
	ErrNotFound           = errors.New("record not found")
	ErrConflict           = errors.New("record already exists")
	ErrBackendUnavailable = errors.New("backend unavailable")

	ErrAccountDisabled = errors.New("account disabled")
	ErrProfileMissing  = errors.New("profile not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrViewNotFound    = errors.New("view state not found")
	ErrStaleView       = errors.New("view state changed concurrently")
)
