package core

import "github.com/pkg/errors"

// FieldError ties an error message to one struct field, keyed by the
// field's JSON name.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries per-field messages to the API error handler,
// which renders them as a {field: message} map.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// shutdown marks an error the process cannot recover from, such as a dead
// database connection. The API error handler turns it into a graceful stop.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
