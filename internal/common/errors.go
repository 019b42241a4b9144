// Package common defines shared constants and sentinel errors used across
// the docvault client layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Storage errors. Quota, disabled or corrupted storage all map here;
	// callers degrade to "item unavailable" instead of failing hard.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Upload validation errors.
	ErrFileRejected = errors.New("file rejected")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")

	// ErrUnauthorized is returned by an authenticated call whose access token
	// was rejected. The retry controller reacts to it.
	ErrUnauthorized = errors.New("unauthorized")
)
