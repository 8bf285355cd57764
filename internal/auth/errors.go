package auth

import "errors"

var (
	// ErrUnauthorized represents missing or invalid authentication tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates a valid token without admin rights.
	ErrForbidden = errors.New("forbidden")
	// ErrNoSecret is returned when no signing secret is configured.
	ErrNoSecret = errors.New("admin token secret not configured")
)
