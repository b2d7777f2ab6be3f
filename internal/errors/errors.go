package errors

import (
	"errors"
	"fmt"
	"syscall"
)

// Exit codes for netblocker
const (
	ExitSuccess           = 0
	ExitGeneralError      = 1
	ExitConfigError       = 2
	ExitConfigUnavailable = 3
	ExitResolutionBlocked = 4
	ExitConnectionBlocked = 5
	ExitParseError        = 6
	ExitChildFailed       = 7
)

// BlockerError is the base error type for netblocker
type BlockerError struct {
	Code    int
	Message string
	Cause   error
}

func (e *BlockerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BlockerError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *BlockerError) ExitCode() int {
	return e.Code
}

// New creates a new BlockerError
func New(code int, message string) *BlockerError {
	return &BlockerError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a BlockerError
func Wrap(code int, message string, cause error) *BlockerError {
	return &BlockerError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// ParseError returns an error for text that is not an IP address literal
func ParseError(text string) *BlockerError {
	return New(ExitParseError, fmt.Sprintf("not an IP address: %q", text))
}

// ConfigLineInvalid returns an error for a rule line that was skipped
func ConfigLineInvalid(line int, text, reason string) *BlockerError {
	return New(ExitConfigError, fmt.Sprintf("line %d: %s: %q", line, reason, text))
}

// ConfigUnavailable returns an error for a rules source that could not be read
func ConfigUnavailable(path string, cause error) *BlockerError {
	return Wrap(ExitConfigUnavailable, fmt.Sprintf("rules unavailable: %s", path), cause)
}

// ConfigError returns an error for settings issues
func ConfigError(message string, cause error) *BlockerError {
	return Wrap(ExitConfigError, message, cause)
}

// ResolutionBlocked returns the policy denial for a name lookup
func ResolutionBlocked(host string, port uint16) *BlockerError {
	if port == 0 {
		return New(ExitResolutionBlocked, fmt.Sprintf("resolution of %s blocked by policy", host))
	}
	return New(ExitResolutionBlocked, fmt.Sprintf("resolution of %s port %d blocked by policy", host, port))
}

// ConnectionBlocked returns the policy denial for an outbound connection.
// The cause is EACCES so callers matching on syscall errors see "permission denied".
func ConnectionBlocked(target string, port uint16) *BlockerError {
	return Wrap(ExitConnectionBlocked, fmt.Sprintf("connection to %s port %d blocked by policy", target, port), syscall.EACCES)
}

// ChildFailed returns an error carrying a wrapped command's exit status
func ChildFailed(code int, cause error) *BlockerError {
	if code <= 0 {
		code = ExitChildFailed
	}
	return Wrap(code, "command failed", cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *BlockerError {
	return New(ExitGeneralError, message)
}

// IsBlocked reports whether err carries a policy denial anywhere in its chain
func IsBlocked(err error) bool {
	var blockerErr *BlockerError
	if !errors.As(err, &blockerErr) {
		return false
	}
	return blockerErr.Code == ExitResolutionBlocked || blockerErr.Code == ExitConnectionBlocked
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var blockerErr *BlockerError
	if errors.As(err, &blockerErr) {
		return blockerErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
