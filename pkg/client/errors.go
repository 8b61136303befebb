package client

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// NetworkError is returned when the backend could not be reached at all.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s %s: %s", e.Method, e.Path, e.Err.Error())
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Refused reports whether the connection was actively refused by the remote host.
func (e *NetworkError) Refused() bool {
	return errors.Is(e.Err, unix.ECONNREFUSED)
}

// ServerError is returned for non-2xx responses and for GraphQL error payloads.
type ServerError struct {
	StatusCode int
	Body       string
	Messages   []string
}

func (e *ServerError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("server error (%d): %s", e.StatusCode, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Body)
}

// Transient reports whether the request may succeed if retried.
func (e *ServerError) Transient() bool {
	switch e.StatusCode {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// ValidationError describes a malformed request. Requests are expected to be
// validated before they reach this package, so it is never produced here.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}
