package interp

import "fmt"

// CommandError rejects a well-formed command. The interpreter answers it
// with an error result and the session continues.
type CommandError struct {
	Command string
	Msg     string
}

// Error implements the error interface
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s: %s", e.Command, e.Msg)
}

// NewCommandError creates a CommandError.
func NewCommandError(command, format string, args ...any) *CommandError {
	return &CommandError{Command: command, Msg: fmt.Sprintf(format, args...)}
}

// ProtocolDesyncError reports a command that breaks the request/reply
// pairing with the server. It ends the session.
type ProtocolDesyncError struct {
	Command string
	Msg     string
}

// Error implements the error interface
func (e *ProtocolDesyncError) Error() string {
	return fmt.Sprintf("protocol desync on %s: %s", e.Command, e.Msg)
}
