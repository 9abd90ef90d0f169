package errors

import (
	"errors"
)

// New returns an error with the given message.
func New(msg string) error {
	return errors.New(msg)
}

// ContextError annotates an error with the operation that produced it.
// The annotations build up into a chain that reads like a call path, e.g.
// "copy step: copy \"app/auth.py\": open source: permission denied".
type ContextError struct {
	Context string
	Err     error
}

func (err ContextError) Error() string {
	return err.Context + ": " + err.Err.Error()
}

// Unwrap returns the wrapped error so that errors.Is and errors.As see
// through the annotation.
func (err ContextError) Unwrap() error {
	return err.Err
}

// WithContext wraps err with a message describing the operation that failed.
func WithContext(err error, msg string) error {
	return ContextError{Context: msg, Err: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
