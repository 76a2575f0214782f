// internal/domain/errors.go
package domain

import "errors"

// ErrUnauthorized is returned by release sources when the API responds with HTTP 401.
// The report command checks for it with errors.Is to point at the token source.
var ErrUnauthorized = errors.New("unauthorized")
