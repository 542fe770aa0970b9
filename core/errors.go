package core

import "github.com/pkg/errors"

// FieldError reports a problem with one field of a request payload,
// keyed by the field's JSON name.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries per-field errors (or a single top-level error)
// from the domain services up to the API layer, where it is rendered as a
// 400 response.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

// NewValidationError wraps err and any field errors into a *ValidationError.
// Either part may be empty.
func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown signals that the service is in an unrecoverable state and the
// process should stop serving.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err (at any wrap depth) is a shutdown error.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
