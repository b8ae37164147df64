package app

import (
	"context"
	"errors"
	"net"

	"github.com/bplmmv/google-drive-toda-live/internal/adapter"
	"github.com/bplmmv/google-drive-toda-live/internal/auth"
	"github.com/bplmmv/google-drive-toda-live/internal/config"
	"github.com/bplmmv/google-drive-toda-live/internal/editor"
	"github.com/bplmmv/google-drive-toda-live/internal/session"
)

// ErrorClass decides how a failure is presented.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	// ClassConfiguration is fatal and blocks the page.
	ClassConfiguration
	// ClassAuthentication returns the user to the login view.
	ClassAuthentication
	// ClassTransient is shown inline with a retry.
	ClassTransient
	// ClassSave is shown as a blocking notice; the open document stays editable.
	ClassSave
	// ClassUnsupported is shown inline in the editor.
	ClassUnsupported
)

func (c ErrorClass) String() string {
	switch c {
	case ClassConfiguration:
		return "configuration"
	case ClassAuthentication:
		return "authentication"
	case ClassTransient:
		return "transient"
	case ClassSave:
		return "save"
	case ClassUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Classify maps an error to its presentation class.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	switch {
	case errors.Is(err, config.ErrMissingAPIKey),
		errors.Is(err, config.ErrMissingClientID),
		errors.Is(err, session.ErrLibraryLoad),
		errors.Is(err, session.ErrIdentityTimeout):
		return ClassConfiguration

	case errors.Is(err, adapter.ErrUnauthorized),
		errors.Is(err, auth.ErrNoToken),
		errors.Is(err, auth.ErrTokenResponse):
		return ClassAuthentication

	case errors.Is(err, editor.ErrGridSave),
		errors.Is(err, editor.ErrSaveInProgress):
		return ClassSave

	case errors.Is(err, adapter.ErrUnsupportedKind):
		return ClassUnsupported

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, adapter.ErrNotFound),
		errors.Is(err, adapter.ErrForbidden),
		errors.Is(err, adapter.ErrPreconditionFailed),
		errors.Is(err, adapter.ErrMalformedPayload),
		errors.Is(err, editor.ErrGridLibrary),
		errors.Is(err, editor.ErrGridUnavailable):
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}
	return ClassUnknown
}
