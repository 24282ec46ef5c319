package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"golang.org/x/term"

	"smartclient/pkg/ui"
)

// Runner provides a high-level interface to run the client application
type Runner struct {
	app    *Application
	config AppConfig
	out    io.Writer
}

// NewRunner creates a new application runner
func NewRunner(config AppConfig) (*Runner, error) {
	app, err := NewApplication(config)
	if err != nil {
		return nil, err
	}
	return &Runner{app: app, config: config, out: os.Stdout}, nil
}

// Application returns the application the runner drives
func (r *Runner) Application() *Application { return r.app }

// Run connects and blocks until the session ends or the process is
// interrupted.
func (r *Runner) Run(ctx context.Context) error {
	if !r.config.Headless && !term.IsTerminal(int(os.Stdin.Fd())) {
		return ui.NewAppError(ui.ErrorTerminal, "no_tty", "standard input is not a terminal, use --headless", nil)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := r.app.Run(ctx)
	r.printSessionSummary()
	if ctx.Err() != nil && err == nil {
		fmt.Fprintln(r.out, "Interrupted")
	}
	return err
}

// printSessionSummary prints a summary of the session
func (r *Runner) printSessionSummary() {
	s := r.app.GetStats()
	if s.SessionID == "" {
		return
	}

	fmt.Fprintf(r.out, "\n=== Session Summary ===\n")
	fmt.Fprintf(r.out, "Session: %s\n", s.SessionID)
	fmt.Fprintf(r.out, "Server: %s\n", r.config.Conn.Addr())
	fmt.Fprintf(r.out, "Duration: %v\n", s.Duration.Round(time.Millisecond))

	names := make([]string, 0, len(s.Counters))
	for name := range s.Counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(r.out, "%s: %d\n", name, s.Counters[name])
	}
	if s.Trace.Dropped > 0 {
		fmt.Fprintf(r.out, "Trace entries dropped: %d\n", s.Trace.Dropped)
	}
	fmt.Fprintf(r.out, "=======================\n")
}

// Stop ends the running session
func (r *Runner) Stop() {
	r.app.Stop()
}

// RunInteractive runs a session with the full screen renderer
func RunInteractive(ctx context.Context, config AppConfig) error {
	config.Headless = false
	runner, err := NewRunner(config)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

// RunHeadless runs a session without a renderer. Display commands still
// update the in-memory screen and the frame trace.
func RunHeadless(ctx context.Context, config AppConfig) error {
	config.Headless = true
	runner, err := NewRunner(config)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}
