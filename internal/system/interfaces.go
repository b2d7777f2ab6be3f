// Package system provides abstractions for OS operations to enable testing.
package system

import (
	"context"
	"io"
)

// Command describes a child process.
type Command struct {
	Name string
	Args []string

	// Env is appended to the parent environment, later entries winning.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// Run starts the command and waits for it to exit. A non-zero exit is
	// reported as an error satisfying ExitCoder.
	Run(ctx context.Context, cmd *Command) error
}

// ExitCoder is implemented by errors carrying a child's exit status.
type ExitCoder interface {
	ExitCode() int
}

var defaultExecutor CommandExecutor = &osExecutor{}

// DefaultExecutor returns the default CommandExecutor implementation.
func DefaultExecutor() CommandExecutor {
	return defaultExecutor
}

// SetDefaultExecutor sets the default CommandExecutor (useful for testing).
func SetDefaultExecutor(exec CommandExecutor) {
	defaultExecutor = exec
}

// ResetDefaults restores the default OS implementations.
func ResetDefaults() {
	defaultExecutor = &osExecutor{}
}
