package domain

import "errors"

// Common domain errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrInternalServer = errors.New("internal server error")
)

// Machine-readable failure reasons returned to the mobile client. These are
// stable: the app switches on them to render the right message.
const (
	ReasonInvalidInput          = "invalid_input"
	ReasonInvalidToken          = "invalid_token"
	ReasonInvalidQR             = "invalid_qr"
	ReasonWrongDirection        = "wrong_direction"
	ReasonConflictingEnrollment = "conflicting_enrollment"
	ReasonLockFailed            = "lock_failed"
	ReasonUnlockFailed          = "unlock_failed"
	ReasonInternalError         = "internal_error"
)

// Camera directives returned to the mobile client
const (
	DirectiveLockCamera   = "LOCK_CAMERA"
	DirectiveUnlockCamera = "UNLOCK_CAMERA"
)
