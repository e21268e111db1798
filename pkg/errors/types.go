package errors

import (
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTimeout is returned by the command runner when a command doesn't
	// finish within its timeout.
	ErrTimeout = New("command timed out")

	// ErrUnlockedUnconfigured is returned when the device reports that it's
	// already unlocked, but no local profile is bound to its unlock code.
	// Unlocking again isn't safe, so the operator has to intervene.
	ErrUnlockedUnconfigured = New("device is unlocked but no local profile is configured for it")

	// ErrNoAccessKeys is returned when the device doesn't return any access
	// keys, which means it isn't ready to serve requests yet.
	ErrNoAccessKeys = New("device returned no access keys")
)

// ValidationError represents malformed operator input.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (err ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", err.Field, err.Value, err.Reason)
}

// UnlockFailure represents an unlock attempt whose postcondition wasn't met.
type UnlockFailure struct {
	Profile string
	Reason  string
}

func (err UnlockFailure) Error() string {
	return fmt.Sprintf("device was not unlocked (profile %q): %s", err.Profile, err.Reason)
}

// CredentialParseError represents a secret key response that doesn't
// contain the expected section or key.
type CredentialParseError struct {
	Section string
	Key     string
}

func (err CredentialParseError) Error() string {
	if err.Key == "" {
		return fmt.Sprintf("credential response has no [%s] section", err.Section)
	}
	return fmt.Sprintf("credential response has no %q in section [%s]", err.Key, err.Section)
}

// AccessTimeout is returned when the liveness probe doesn't complete in
// time.
type AccessTimeout struct {
	Endpoint string
	Timeout  time.Duration
	Cause    error
}

func (err AccessTimeout) Error() string {
	return fmt.Sprintf("%s did not respond within %s", err.Endpoint, err.Timeout)
}

func (err AccessTimeout) Unwrap() error {
	return err.Cause
}

// CommandFailed represents an external command that exited with a non-zero
// status.
type CommandFailed struct {
	Command  []string
	ExitCode int
	Stderr   string
}

func (err CommandFailed) Error() string {
	msg := fmt.Sprintf("%q exited with status %d", strings.Join(err.Command, " "), err.ExitCode)
	if stderr := strings.TrimSpace(err.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}
