package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Decision engine errors
	ErrInsufficientData = errors.New("insufficient enrollment data")
	ErrModelNotFound    = errors.New("no behavioral model enrolled for user")
	ErrModelCorrupted   = errors.New("behavioral model failed integrity check")
)
