package service

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// password, so callers cannot enumerate usernames. Logs tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionInvalid covers every way a refresh token can be unusable:
	// expired, malformed, unknown subject, or superseded by a later rotation.
	ErrSessionInvalid = errors.New("session invalid")

	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPasswordMismatch = errors.New("password confirmation mismatch")
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("user already exists")
)
