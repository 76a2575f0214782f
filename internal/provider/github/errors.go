package github

import (
	"fmt"
	"net/http"

	"github.com/waabox/unreleased/internal/domain"
)

// RemoteError is returned when a GitHub API call cannot be completed,
// answers with a non-2xx status, or returns a body that cannot be decoded.
type RemoteError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Body != "" {
		return fmt.Sprintf("GitHub API request failed with status %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("GitHub API request failed with status %s", e.Status)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is matches domain.ErrUnauthorized for HTTP 401 responses.
func (e *RemoteError) Is(target error) bool {
	return target == domain.ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}
