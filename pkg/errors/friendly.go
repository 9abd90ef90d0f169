package errors

import (
	"errors"
	"fmt"
)

// FriendlyError is an error whose message is meant to be shown to the user
// directly, without the context chain that wraps it.
type FriendlyError interface {
	error
	FriendlyMessage() string
}

type friendlyError struct {
	message string
}

func (err friendlyError) Error() string {
	return err.message
}

func (err friendlyError) FriendlyMessage() string {
	return err.message
}

// NewFriendlyError creates an error that will be printed to the user as-is.
func NewFriendlyError(format string, args ...interface{}) error {
	return friendlyError{fmt.Sprintf(format, args...)}
}

// GetPrintableMessage returns the message that should be shown to the user
// for err. If any error in the chain is a FriendlyError, its message wins.
func GetPrintableMessage(err error) string {
	for unwrapped := err; unwrapped != nil; unwrapped = errors.Unwrap(unwrapped) {
		if friendly, ok := unwrapped.(FriendlyError); ok {
			return friendly.FriendlyMessage()
		}
	}
	return err.Error()
}
