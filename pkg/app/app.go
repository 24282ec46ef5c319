// Package app provides the main application controller: it opens the
// connection, runs the session and attaches the terminal renderer once the
// server starts drawing.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartclient/pkg/conn"
	"smartclient/pkg/dispatch"
	"smartclient/pkg/history"
	"smartclient/pkg/interp"
	"smartclient/pkg/markup"
	"smartclient/pkg/menu"
	"smartclient/pkg/terminal"
	"smartclient/pkg/ui"
)

// Version is reported to the server in the identity frame.
const Version = "18.0.2"

// MenuKey opens the local session menu.
const MenuKey = tcell.KeyCtrlRightSq

// AppConfig contains application configuration
type AppConfig struct {
	Conn  conn.ConnConfig
	Retry conn.RetryConfig
	App   ui.ApplicationConfig
	// Headless runs without a renderer. Keyin commands then block until
	// the session ends.
	Headless bool
	Version  string
	// LiveTrace, when set, receives every traced frame as it happens.
	LiveTrace io.Writer
}

// DefaultAppConfig returns default application configuration
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Conn:    conn.DefaultConfig(),
		Retry:   conn.DefaultRetryConfig(),
		App:     ui.DefaultApplicationConfig(),
		Version: Version,
	}
}

// Validate checks every part of the configuration
func (c AppConfig) Validate() error {
	if err := c.Conn.Validate(); err != nil {
		return ui.NewAppError(ui.ErrorConfig, "conn", "invalid connection config", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return ui.NewAppError(ui.ErrorConfig, "retry", "invalid retry config", err)
	}
	if err := c.App.Validate(); err != nil {
		return ui.NewAppError(ui.ErrorConfig, "app", "invalid application config", err)
	}
	return nil
}

// Application represents the main application controller
type Application struct {
	config AppConfig
	log    *slog.Logger

	dialer   *conn.Dialer
	trace    *history.Recorder
	metrics  *dispatch.Metrics
	registry *prometheus.Registry

	// newScreen creates the tcell screen the renderer draws on.
	newScreen func() (tcell.Screen, error)

	mu       sync.Mutex
	ctx      context.Context
	session  *dispatch.Session
	renderer *terminal.TerminalRenderer
	menu     *menu.Menu
	started  time.Time
	ended    time.Time

	closers []io.Closer
}

// NewApplication creates a new application instance
func NewApplication(config AppConfig) (*Application, error) {
	if config.Version == "" {
		config.Version = Version
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		config:    config,
		trace:     history.NewRecorder(config.App.TraceMaxEntries),
		metrics:   dispatch.NewMetrics(),
		registry:  prometheus.NewRegistry(),
		newScreen: tcell.NewScreen,
	}

	logger, closer, err := openLogger(config.App)
	if err != nil {
		return nil, ui.NewAppError(ui.ErrorConfig, "log", "failed to open log file", err)
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	app.log = logger

	if config.LiveTrace != nil {
		app.trace.SetLive(config.LiveTrace)
	}

	if err := app.registry.Register(app.metrics); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	app.dialer = conn.NewDialer(config.Conn, config.Retry)
	app.dialer.Logger = logger.With("component", "conn")

	return app, nil
}

// openLogger builds the JSON debug logger. Without a log file everything
// is discarded: the terminal belongs to the renderer.
func openLogger(cfg ui.ApplicationConfig) (*slog.Logger, io.Closer, error) {
	if cfg.LogFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil
	}
	level, err := ui.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if dir := filepath.Dir(cfg.LogFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})), f, nil
}

// Logger returns the application logger
func (app *Application) Logger() *slog.Logger { return app.log }

// Trace returns the frame trace recorder
func (app *Application) Trace() *history.Recorder { return app.trace }

// Metrics returns the session metrics collector
func (app *Application) Metrics() *dispatch.Metrics { return app.metrics }

// ConnectionState returns the state of the dialer
func (app *Application) ConnectionState() conn.ConnectionState { return app.dialer.State() }

// Run connects to the server and runs the session until it ends
func (app *Application) Run(ctx context.Context) error {
	defer app.Close()

	if app.config.App.MetricsAddr != "" {
		stop, err := app.serveMetrics(app.config.App.MetricsAddr)
		if err != nil {
			return ui.NewAppError(ui.ErrorConfig, "metrics", "failed to start metrics endpoint", err)
		}
		defer stop()
	}

	app.log.Info("connecting", "addr", app.config.Conn.Addr(), "encryption", app.config.Conn.Encryption)
	c, err := app.dialer.Connect(ctx)
	if err != nil {
		app.log.Error("connect failed", "error", err)
		return ui.Classify(err)
	}
	return app.RunConn(ctx, c)
}

// RunConn runs a session on an already established data connection
func (app *Application) RunConn(ctx context.Context, c io.ReadWriteCloser) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := dispatch.DefaultConfig()
	cfg.KeepAliveGrace = app.config.App.KeepAliveGrace
	cfg.KeepAliveInterval = app.config.App.KeepAliveInterval
	cfg.Logger = app.log
	cfg.Metrics = app.metrics
	cfg.Trace = app.trace.Record
	sess := dispatch.NewSession(c, cfg)

	app.mu.Lock()
	app.ctx = ctx
	app.session = sess
	app.started = time.Now()
	app.mu.Unlock()

	in := interp.New(sess, interp.Options{
		Width:     app.config.App.TerminalWidth,
		Height:    app.config.App.TerminalHeight,
		PCCharset: app.config.App.PCCharset,
		Logger:    app.log.With("component", "interp", "session", sess.ID),
		Beep:      app.beep,
		Shell:     app.shell,
	})
	in.OnEngine(app.attachEngine)

	if err := sess.Send(conn.Identity(app.config.Version, time.Now())); err != nil {
		c.Close()
		return ui.Classify(err)
	}

	err := sess.Run(ctx, in)

	app.mu.Lock()
	app.ended = time.Now()
	r := app.renderer
	app.mu.Unlock()
	if r != nil {
		r.Stop()
	}

	if path := app.config.App.TraceFile; path != "" {
		if serr := app.SaveTrace(path); serr != nil {
			app.log.Error("failed to save trace", "file", path, "error", serr)
		}
	}

	if err != nil {
		return ui.Classify(err)
	}
	return nil
}

// attachEngine runs on the main loop goroutine when the interpreter first
// creates the engine.
func (app *Application) attachEngine(e *terminal.Engine) {
	app.mu.Lock()
	sess, ctx := app.session, app.ctx
	app.mu.Unlock()

	sess.SetEditor(e)
	e.SetActionNotifier(sess.NotifyAction)

	if app.config.Headless {
		return
	}

	screen, err := app.newScreen()
	if err != nil {
		app.log.Error("failed to create screen", "error", err)
		sess.Abort()
		return
	}
	r := terminal.NewTerminalRendererWithScreen(screen, e.Screen())
	if err := r.Start(); err != nil {
		app.log.Error("failed to start renderer", "error", err)
		sess.Abort()
		return
	}
	e.SetPainter(r)

	m := app.buildMenu(r, e)
	r.SetInterceptor(m.HandleKey)

	app.mu.Lock()
	app.renderer = r
	app.menu = m
	app.mu.Unlock()

	go r.Run(ctx, e.RecvKey)
}

func (app *Application) buildMenu(r *terminal.TerminalRenderer, e *terminal.Engine) *menu.Menu {
	m := menu.NewMenu("SmartClient", r, MenuKey)
	m.AddItem("Send break", 'b', func() error {
		e.Break()
		return nil
	})
	m.AddItem("Save trace", 's', func() error {
		path := app.config.App.TraceFile
		if path == "" {
			path = fmt.Sprintf("smartclient-trace-%s.log", time.Now().Format("20060102-150405"))
		}
		return app.SaveTrace(path)
	})
	m.AddSeparator()
	m.AddItem("Disconnect", 'q', func() error {
		app.Stop()
		return nil
	})
	m.SetOnError(func(err error) {
		app.log.Error("menu action failed", "error", err)
		r.Beep()
	})
	return m
}

// beep rings through the renderer once one is attached.
func (app *Application) beep() {
	app.mu.Lock()
	r := app.renderer
	app.mu.Unlock()
	if r != nil {
		r.Beep()
	}
}

// shell runs a rollout command with the screen handed back to the user.
func (app *Application) shell(command string) error {
	app.mu.Lock()
	r := app.renderer
	app.mu.Unlock()
	if r != nil {
		if err := r.Suspend(); err != nil {
			return err
		}
		defer func() {
			if err := r.Resume(); err != nil {
				app.log.Error("failed to resume screen", "error", err)
			}
		}()
	}
	return interp.RunShell(command)
}

// Stop ends the running session
func (app *Application) Stop() {
	app.mu.Lock()
	sess := app.session
	app.mu.Unlock()
	if sess == nil {
		return
	}
	sess.Abort()
	if err := sess.Terminate(); err != nil && !errors.Is(err, dispatch.ErrQueueClosed) {
		app.log.Warn("failed to queue terminate", "error", err)
	}
}

// SendBreak queues a break for the server outside of any keyin.
func (app *Application) SendBreak() error {
	app.mu.Lock()
	sess := app.session
	app.mu.Unlock()
	if sess == nil {
		return fmt.Errorf("no active session")
	}
	return sess.EnqueueOutgoing(markup.New("break"))
}

// SaveTrace writes the frame trace; the format follows the configuration
func (app *Application) SaveTrace(path string) error {
	format, err := history.ParseFormat(app.config.App.TraceFormat)
	if err != nil {
		return err
	}
	if err := app.trace.SaveToFile(path, format); err != nil {
		return err
	}
	app.log.Info("trace saved", "file", path, "entries", app.trace.Len())
	return nil
}

// Stats summarizes the last session
type Stats struct {
	SessionID string
	Duration  time.Duration
	Counters  map[string]int64
	Trace     history.Stats
}

// GetStats returns application statistics
func (app *Application) GetStats() Stats {
	app.mu.Lock()
	defer app.mu.Unlock()

	s := Stats{Counters: app.metrics.Snapshot(), Trace: app.trace.Stats()}
	if app.session != nil {
		s.SessionID = app.session.ID
	}
	if !app.started.IsZero() {
		end := app.ended
		if end.IsZero() {
			end = time.Now()
		}
		s.Duration = end.Sub(app.started)
	}
	return s
}

// serveMetrics exposes the registry on addr until the returned stop runs.
func (app *Application) serveMetrics(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.log.Error("metrics server stopped", "error", err)
		}
	}()
	app.log.Info("metrics endpoint listening", "addr", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}

// Close releases the log file
func (app *Application) Close() error {
	var errs []error
	for _, c := range app.closers {
		errs = append(errs, c.Close())
	}
	app.closers = nil
	return errors.Join(errs...)
}
