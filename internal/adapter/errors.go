package adapter

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrPreconditionFailed is returned when an ETag mismatch occurs.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrUnauthorized is returned when the bearer token is missing, expired or revoked.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the user lacks permission on the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrUnsupportedKind is returned when a document kind cannot be edited.
	ErrUnsupportedKind = errors.New("unsupported file type")

	// ErrMalformedPayload is returned when the remote response is not in the expected shape.
	ErrMalformedPayload = errors.New("malformed remote payload")
)

// ErrorForStatus maps an HTTP status code to a sentinel error, or nil when the
// status has no dedicated sentinel.
func ErrorForStatus(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusPreconditionFailed:
		return ErrPreconditionFailed
	default:
		return nil
	}
}
