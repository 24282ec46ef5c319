// Package ui holds the application error taxonomy and the application level
// configuration shared by the CLI and the runner.
package ui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"smartclient/pkg/conn"
	"smartclient/pkg/frame"
	"smartclient/pkg/history"
	"smartclient/pkg/interp"
	"smartclient/pkg/markup"
	"smartclient/pkg/terminal"
)

// ErrorType represents different types of application errors
type ErrorType int

const (
	ErrorFraming ErrorType = iota
	ErrorIO
	ErrorProtocolDesync
	ErrorCommand
	ErrorMask
	ErrorConfig
	ErrorHandshake
	ErrorTerminal
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	types := []string{
		"framing", "io", "protocol_desync", "command", "mask", "config", "handshake", "terminal",
	}

	if int(e) >= 0 && int(e) < len(types) {
		return types[e]
	}
	return "unknown"
}

// Fatal reports whether errors of this type end the session.
func (e ErrorType) Fatal() bool {
	switch e {
	case ErrorCommand, ErrorMask:
		return false
	}
	return true
}

// AppError represents an application-specific error
type AppError struct {
	Type      ErrorType `json:"type"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	Context   string    `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Type.String(), e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// Classify maps an error from any layer onto the taxonomy. An AppError
// anywhere in the chain is returned as is.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var (
		framing  *frame.FramingError
		syntax   *markup.SyntaxError
		desync   *interp.ProtocolDesyncError
		command  *interp.CommandError
		rejected *conn.RejectedError
		connErr  *conn.ConnError
		netErr   net.Error
	)
	switch {
	case errors.As(err, &framing):
		return NewAppError(ErrorFraming, "bad_header", "malformed frame", err)
	case errors.As(err, &desync):
		return NewAppError(ErrorProtocolDesync, "desync", "unexpected command from server", err)
	case errors.As(err, &command):
		return NewAppError(ErrorCommand, "command", "command failed", err)
	case errors.Is(err, terminal.ErrMaskViolation), errors.Is(err, terminal.ErrFieldFull):
		return NewAppError(ErrorMask, "rejected_key", "key rejected by field", err)
	case errors.As(err, &rejected):
		return NewAppError(ErrorHandshake, "rejected", "server refused the session", err)
	case errors.As(err, &connErr) && connErr.Operation == "handshake":
		return NewAppError(ErrorHandshake, "handshake", "session handshake failed", err)
	case errors.As(err, &connErr):
		return NewAppError(ErrorIO, connErr.Operation, "connection failed", err)
	case errors.As(err, &syntax):
		return NewAppError(ErrorFraming, "bad_payload", "malformed command document", err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return NewAppError(ErrorIO, "closed", "connection closed", err)
	case errors.As(err, &netErr):
		return NewAppError(ErrorIO, "network", "network error", err)
	case errors.Is(err, os.ErrPermission):
		return NewAppError(ErrorIO, "permission", "permission denied", err)
	}
	return NewAppError(ErrorIO, "unclassified", "session failed", err)
}

// ExitCode returns the process exit status for err.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch Classify(err).Type {
	case ErrorConfig:
		return 2
	case ErrorHandshake:
		return 3
	}
	return 1
}

// ApplicationConfig represents the application configuration
type ApplicationConfig struct {
	TerminalWidth  int    `json:"terminal_width"`
	TerminalHeight int    `json:"terminal_height"`
	LogLevel       string `json:"log_level"`
	// LogFile receives the JSON debug log. Empty means no log.
	LogFile     string `json:"log_file,omitempty"`
	TraceFile   string `json:"trace_file,omitempty"`
	TraceFormat string `json:"trace_format"`
	// TraceMaxEntries bounds the in-memory frame trace.
	TraceMaxEntries int    `json:"trace_max_entries"`
	MetricsAddr     string `json:"metrics_addr,omitempty"`
	ConfigDir       string `json:"config_dir"`
	// PCCharset maps text through code page 437.
	PCCharset         bool          `json:"pc_charset"`
	KeepAliveGrace    time.Duration `json:"keepalive_grace"`
	KeepAliveInterval time.Duration `json:"keepalive_interval"`
}

// DefaultApplicationConfig returns a default application configuration
func DefaultApplicationConfig() ApplicationConfig {
	return ApplicationConfig{
		TerminalWidth:     80,
		TerminalHeight:    25,
		LogLevel:          "info",
		TraceFormat:       "timestamped",
		TraceMaxEntries:   history.DefaultMaxEntries,
		ConfigDir:         ".smartclient",
		KeepAliveGrace:    20 * time.Second,
		KeepAliveInterval: 30 * time.Second,
	}
}

// Validate checks if the application configuration is valid
func (c ApplicationConfig) Validate() error {
	if c.TerminalWidth <= 0 || c.TerminalWidth > 255 {
		return fmt.Errorf("terminal width must be between 1 and 255, got: %d", c.TerminalWidth)
	}

	if c.TerminalHeight <= 0 || c.TerminalHeight > 255 {
		return fmt.Errorf("terminal height must be between 1 and 255, got: %d", c.TerminalHeight)
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if _, err := history.ParseFormat(c.TraceFormat); err != nil {
		return err
	}

	if c.TraceMaxEntries <= 0 {
		return fmt.Errorf("trace max entries must be positive, got: %d", c.TraceMaxEntries)
	}

	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("invalid metrics address %q: %w", c.MetricsAddr, err)
		}
	}

	if c.ConfigDir == "" {
		return fmt.Errorf("config directory cannot be empty")
	}

	if c.KeepAliveGrace < 0 || c.KeepAliveInterval <= 0 {
		return fmt.Errorf("keep-alive grace cannot be negative and interval must be positive")
	}

	return nil
}

// ParseLogLevel converts a level name into a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s", s)
}
