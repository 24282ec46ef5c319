// Package conn opens the connection to a smart server: the one-shot control
// exchange, then the long-lived data connection the session runs on.
package conn

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultPort is the server's well-known control port.
	DefaultPort = 9735

	// LocalPortNone asks the server to supply the data port in its reply.
	LocalPortNone = 0
	// LocalPortAny listens on an ephemeral port for the server to call back.
	LocalPortAny = -1
)

// ConnConfig defines how to reach a server and what to ask it for.
type ConnConfig struct {
	Host       string `json:"host" yaml:"host"`
	Port       int    `json:"port" yaml:"port"`
	User       string `json:"user,omitempty" yaml:"user,omitempty"`
	Dir        string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Params     string `json:"params,omitempty" yaml:"params,omitempty"`
	Encryption bool   `json:"encryption" yaml:"encryption"`
	// LocalPort selects how the data connection is opened: LocalPortNone
	// dials the port the server replies with, LocalPortAny or a positive
	// port listens for the server to connect back.
	LocalPort int `json:"local_port" yaml:"local_port"`
	// InsecureSkipVerify disables certificate checks on the encrypted
	// data connection.
	InsecureSkipVerify bool          `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty"`
	DialTimeout        time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	HandshakeTimeout   time.Duration `json:"handshake_timeout" yaml:"handshake_timeout"`
}

// Validate checks if the connection configuration is valid
func (c ConnConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", c.Port)
	}

	if c.LocalPort < LocalPortAny || c.LocalPort > 65535 {
		return fmt.Errorf("local port must be -1, 0 or a port number, got: %d", c.LocalPort)
	}

	if strings.ContainsAny(c.User, " \t\"<>") {
		return fmt.Errorf("user %q contains invalid characters", c.User)
	}

	if c.DialTimeout < 0 {
		return fmt.Errorf("dial timeout cannot be negative")
	}

	if c.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake timeout cannot be negative")
	}

	return nil
}

// Addr returns the control address in host:port form.
func (c ConnConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DefaultConfig returns a default connection configuration
func DefaultConfig() ConnConfig {
	return ConnConfig{
		Host:             "localhost",
		Port:             DefaultPort,
		LocalPort:        LocalPortAny,
		DialTimeout:      10 * time.Second,
		HandshakeTimeout: 30 * time.Second,
	}
}

// ParseAddr splits "host[:port]" into a configuration based on DefaultConfig.
func ParseAddr(addr string) (ConnConfig, error) {
	cfg := DefaultConfig()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// no port given
		if strings.Contains(addr, ":") && !strings.HasPrefix(addr, "[") {
			return cfg, fmt.Errorf("invalid address %q: %w", addr, err)
		}
		cfg.Host = strings.Trim(addr, "[]")
		return cfg, cfg.Validate()
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return cfg, fmt.Errorf("invalid port in %q", addr)
	}
	cfg.Host = host
	cfg.Port = p
	return cfg, cfg.Validate()
}

// ConnError represents a connection specific error
type ConnError struct {
	Operation string
	Addr      string
	Cause     error
}

// Error implements the error interface
func (e *ConnError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed on %s: %v", e.Operation, e.Addr, e.Cause)
	}
	return fmt.Sprintf("%s failed on %s", e.Operation, e.Addr)
}

// Unwrap returns the underlying cause.
func (e *ConnError) Unwrap() error {
	return e.Cause
}

// NewConnError creates a new connection error
func NewConnError(operation, addr string, cause error) *ConnError {
	return &ConnError{
		Operation: operation,
		Addr:      addr,
		Cause:     cause,
	}
}

// ConnectionState represents the state of a server connection
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateHandshaking
	StateConnected
	StateError
)

// String returns the string representation of ConnectionState
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// RetryConfig defines configuration for connection retry logic
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries" yaml:"max_retries"`
	RetryInterval time.Duration `json:"retry_interval" yaml:"retry_interval"`
	BackoffFactor float64       `json:"backoff_factor" yaml:"backoff_factor"`
	MaxInterval   time.Duration `json:"max_interval" yaml:"max_interval"`
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		RetryInterval: time.Second,
		BackoffFactor: 2.0,
		MaxInterval:   time.Second * 10,
	}
}

// Validate checks if the retry configuration is valid
func (r RetryConfig) Validate() error {
	if r.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if r.RetryInterval < 0 {
		return fmt.Errorf("retry interval cannot be negative")
	}

	if r.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff factor must be >= 1.0")
	}

	if r.MaxInterval < r.RetryInterval {
		return fmt.Errorf("max interval cannot be less than retry interval")
	}

	return nil
}

// Dialer performs the handshake and opens the data connection. It records
// the state of the last attempt for status reporting.
type Dialer struct {
	Config ConnConfig
	Retry  RetryConfig
	// TLS overrides the client TLS configuration used when Config.Encryption
	// is set.
	TLS    *tls.Config
	Logger *slog.Logger

	mu      sync.Mutex
	state   ConnectionState
	lastErr error
}

// NewDialer creates a dialer with the given configurations
func NewDialer(cfg ConnConfig, retry RetryConfig) *Dialer {
	return &Dialer{
		Config: cfg,
		Retry:  retry,
		state:  StateDisconnected,
	}
}

// State returns the current connection state
func (d *Dialer) State() ConnectionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// LastError returns the last error that occurred
func (d *Dialer) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *Dialer) setState(s ConnectionState, err error) {
	d.mu.Lock()
	d.state = s
	d.lastErr = err
	d.mu.Unlock()
}

func (d *Dialer) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Logger
}

// dialWithRetry opens a TCP connection, backing off between recoverable
// failures.
func (d *Dialer) dialWithRetry(ctx context.Context, addr string) (net.Conn, error) {
	if err := d.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry configuration: %w", err)
	}

	nd := net.Dialer{Timeout: d.Config.DialTimeout}
	var lastErr error
	interval := d.Retry.RetryInterval

	for attempt := 0; attempt <= d.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			d.logger().Debug("retrying dial", "addr", addr, "attempt", attempt, "wait", interval)
			select {
			case <-ctx.Done():
				return nil, NewConnError("dial", addr, ctx.Err())
			case <-time.After(interval):
			}
			interval = time.Duration(float64(interval) * d.Retry.BackoffFactor)
			if interval > d.Retry.MaxInterval {
				interval = d.Retry.MaxInterval
			}
		}

		c, err := nd.DialContext(ctx, "tcp", addr)
		if err == nil {
			return c, nil
		}

		lastErr = err

		if ctx.Err() != nil || !isRecoverableError(err) {
			break
		}
	}

	return nil, NewConnError("dial", addr, lastErr)
}

// isRecoverableError determines if an error is recoverable and retry should be attempted
func isRecoverableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	errorStr := strings.ToLower(err.Error())

	recoverablePatterns := []string{
		"connection refused",
		"connection reset",
		"resource temporarily unavailable",
		"network is unreachable",
		"no route to host",
		"timeout",
	}

	for _, pattern := range recoverablePatterns {
		if strings.Contains(errorStr, pattern) {
			return true
		}
	}

	return false
}
