package errors

import (
	goerrors "errors"
	"fmt"
)

// New returns an error that formats as the given text.
func New(msg string) error {
	return goerrors.New(msg)
}

// Is and As are re-exported so that callers only need to import this package.
var (
	Is = goerrors.Is
	As = goerrors.As
)

type contextError struct {
	context string
	err     error
}

// WithContext annotates `err` with a short description of what was being
// attempted when it occurred. The resulting error message reads like
// "context: err".
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, err: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// FriendlyError is an error whose message is meant to be read by the
// operator as is, without the context of the calls that led up to it.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError from a format string.
func NewFriendlyError(template string, args ...interface{}) FriendlyError {
	return FriendlyError{fmt.Sprintf(template, args...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the message that should be shown to the operator.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

// Friendly is implemented by errors that carry an operator-facing message.
type Friendly interface {
	FriendlyMessage() string
}

// GetFriendlyMessage returns the operator-facing message of the first
// friendly error in err's chain.
func GetFriendlyMessage(err error) (string, bool) {
	for err != nil {
		if friendly, ok := err.(Friendly); ok {
			return friendly.FriendlyMessage(), true
		}
		err = goerrors.Unwrap(err)
	}
	return "", false
}

// RootCause strips all context wrapping from err.
func RootCause(err error) error {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}
