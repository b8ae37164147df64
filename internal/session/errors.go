package session

import "errors"

var (
	// ErrLibraryLoad is returned when the client libraries fail to load. It is fatal.
	ErrLibraryLoad = errors.New("error loading Google API libraries")

	// ErrIdentityTimeout is returned when the identity service never became available.
	ErrIdentityTimeout = errors.New("Google Identity Services did not load")

	// ErrIdentityNotReady is returned by Login before the token client exists.
	ErrIdentityNotReady = errors.New("identity service is not ready yet")
)
