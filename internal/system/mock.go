package system

import (
	"context"
	"fmt"
	"sync"
)

// MockExecutor implements CommandExecutor for testing.
type MockExecutor struct {
	mu       sync.Mutex
	commands []Command

	// ExitCode, when non-zero, is returned as an ExitCoder error.
	ExitCode int
	// Err is returned as is when set.
	Err error
	// OnRun is called with each command before returning.
	OnRun func(cmd *Command)
}

// NewMockExecutor creates a MockExecutor whose commands succeed.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

func (m *MockExecutor) Run(ctx context.Context, cmd *Command) error {
	m.mu.Lock()
	m.commands = append(m.commands, *cmd)
	m.mu.Unlock()

	if m.OnRun != nil {
		m.OnRun(cmd)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Err != nil {
		return m.Err
	}
	if m.ExitCode != 0 {
		return &MockExitError{Code: m.ExitCode}
	}
	return nil
}

// Commands returns every command run so far.
func (m *MockExecutor) Commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, len(m.commands))
	copy(out, m.commands)
	return out
}

// LastCommand returns the most recent command, or nil.
func (m *MockExecutor) LastCommand() *Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.commands) == 0 {
		return nil
	}
	c := m.commands[len(m.commands)-1]
	return &c
}

// MockExitError is the error MockExecutor returns for a non-zero exit.
type MockExitError struct {
	Code int
}

func (e *MockExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *MockExitError) ExitCode() int {
	return e.Code
}
