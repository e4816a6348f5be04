package domain

import "errors"

// Stable error kinds surfaced by the service layer. Handlers map these to
// HTTP statuses; adapters translate driver failures into them so callers
// never see a raw low-level error.
var (
	// ErrNotFound is returned for unknown or soft-deleted short codes.
	ErrNotFound = errors.New("link not found")
	// ErrConflict is returned when a short code is already taken by an active link.
	ErrConflict = errors.New("short code already exists")
	// ErrForbidden is returned for mutation attempts by a non-owner.
	ErrForbidden = errors.New("not authorized to perform this action")
	// ErrInvalidURL is returned when the original URL fails validation.
	ErrInvalidURL = errors.New("invalid original url")
	// ErrInvalidCode is returned when a custom alias fails validation.
	ErrInvalidCode = errors.New("invalid short code")
	// ErrTransient marks store/cache connectivity failures safe to retry.
	ErrTransient = errors.New("temporary backend failure")
	// ErrInternal marks unexpected failures, e.g. generator retry exhaustion.
	ErrInternal = errors.New("internal error")
)

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err indicates a uniqueness conflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsForbidden reports whether err indicates an ownership violation.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsTransient reports whether err is safe to retry.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
