package auth

import "errors"

var (
	// ErrUnauthorized is returned when a request carries no usable caller identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingAuthorizer is returned when the gateway did not forward an authorizer id.
	ErrMissingAuthorizer = errors.New("authorizer context required")

	// ErrInvalidAPIKey is returned by the development extractor for unknown keys.
	ErrInvalidAPIKey = errors.New("invalid API key for local development")
)
