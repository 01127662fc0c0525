package powerdrill

import "fmt"

// AuthError indicates the API rejected the credentials (HTTP 401 or 403).
// It is never retried and never rewrapped into a generic failure so callers
// can tell "invalid credentials" apart from everything else.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("invalid credentials (status %d)", e.Status)
}

// RequestError is any other transport or HTTP failure. Message carries the
// upstream error message when the response body contained one.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api request failed (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api request failed: %s", e.Message)
}
