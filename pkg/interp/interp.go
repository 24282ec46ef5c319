// Package interp turns server commands into terminal engine calls and
// replies. All handlers run on the session main loop goroutine.
package interp

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"smartclient/pkg/dispatch"
	"smartclient/pkg/markup"
	"smartclient/pkg/terminal"
)

// Session is the connection the interpreter answers through.
type Session interface {
	Send(cmd *markup.Element) error
	Abort()
	Terminate() error
	Metrics() *dispatch.Metrics
}

// HandlerFunc processes one command. A *CommandError is answered with an
// error result; any other error is fatal.
type HandlerFunc func(cmd *markup.Element) error

// Options configures an Interpreter.
type Options struct {
	// Width and Height size the engine unless the server overrides them
	// before the first display command.
	Width  int
	Height int
	// PCCharset maps text between the PC character set and Unicode in
	// both directions.
	PCCharset bool
	// ExtendedEndKeys adds navigation and editing keys to the initial end
	// keys; ShiftFKeys adds shift-F1 through shift-F10.
	ExtendedEndKeys bool
	ShiftFKeys      bool
	KeyinUpper      bool
	KeyinReverse    bool
	Logger          *slog.Logger
	// Beep sounds the bell before any engine exists.
	Beep func()
	// Shell runs a rollout command line and returns its exit error.
	Shell func(command string) error
	// Sleep implements the wait display command.
	Sleep func(time.Duration)
}

// Interpreter dispatches commands by element name.
type Interpreter struct {
	sess     Session
	opts     Options
	log      *slog.Logger
	handlers map[string]HandlerFunc

	engine   *terminal.Engine
	onEngine []func(*terminal.Engine)

	width, height int
	autoRoll      bool
	ansi256       bool
	dcflag        bool
	cancelKey     terminal.FuncKey
	interruptKey  terminal.FuncKey
}

// New creates an interpreter with the built-in handlers registered.
func New(sess Session, opts Options) *Interpreter {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.Height <= 0 {
		opts.Height = 25
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Beep == nil {
		opts.Beep = func() {}
	}
	if opts.Shell == nil {
		opts.Shell = RunShell
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	in := &Interpreter{
		sess:     sess,
		opts:     opts,
		log:      opts.Logger,
		handlers: make(map[string]HandlerFunc),
		width:    opts.Width,
		height:   opts.Height,
		autoRoll: true,
	}
	in.registerBuiltins()
	return in
}

func (in *Interpreter) registerBuiltins() {
	in.Register("d", in.handleDisplay)
	in.Register("k", in.handleKeyin)
	in.Register("se", in.handleSetEndKey)
	in.Register("ce", in.handleClearEndKey)
	in.Register("ts", in.handleTrapSet)
	in.Register("tc", in.handleTrapClear)
	in.Register("getwindow", in.handleGetWindow)
	in.Register("s", in.handleSync)
	in.Register("quit", in.handleQuit)
	in.Register("rollout", in.handleRollout)
	in.Register("scrnrest", in.handleRestore(terminal.RestoreScreen))
	in.Register("winrest", in.handleRestore(terminal.RestoreWindow))
	in.Register("smartserver", in.handleSmartServer)
	for _, name := range []string{"r", "t", "break", "alivechk"} {
		in.Register(name, in.handleClientOnly)
	}
}

// Register installs or replaces the handler for an element name.
// Collaborators use it to add commands beyond the terminal set.
func (in *Interpreter) Register(name string, h HandlerFunc) {
	in.handlers[name] = h
}

// OnEngine registers fn to run when the terminal engine is created. If it
// already exists fn runs immediately.
func (in *Interpreter) OnEngine(fn func(*terminal.Engine)) {
	in.onEngine = append(in.onEngine, fn)
	if in.engine != nil {
		fn(in.engine)
	}
}

// HasEngine reports whether the terminal engine has been created.
func (in *Interpreter) HasEngine() bool { return in.engine != nil }

// Engine returns the terminal engine, creating it on first use with the
// display geometry and keyin options known at that point.
func (in *Interpreter) Engine() *terminal.Engine {
	if in.engine != nil {
		return in.engine
	}
	e := terminal.New(terminal.Options{
		Width:        in.width,
		Height:       in.height,
		KeyinUpper:   in.opts.KeyinUpper,
		KeyinReverse: in.opts.KeyinReverse,
		Logger:       in.log,
	})
	e.SetAutoRoll(in.autoRoll)
	e.SetStandardEndKeys(in.opts.ExtendedEndKeys, in.opts.ShiftFKeys)
	if in.cancelKey != 0 {
		e.SetCancelKey(in.cancelKey)
	}
	if in.interruptKey != 0 {
		e.SetInterruptKey(in.interruptKey)
	}
	in.engine = e
	in.log.Debug("terminal engine created", "width", in.width, "height", in.height, "ansi256", in.ansi256)
	for _, fn := range in.onEngine {
		fn(e)
	}
	return e
}

// Handle processes one incoming command. Unknown commands are logged and
// ignored.
func (in *Interpreter) Handle(cmd *markup.Element) error {
	h, ok := in.handlers[cmd.Name]
	if !ok {
		in.log.Warn("unknown command", "command", cmd.Name)
		return nil
	}
	if cmd.Name != "d" {
		in.log.Debug("handling command", "command", cmd.Name)
	}
	err := h(cmd)
	var ce *CommandError
	if errors.As(err, &ce) {
		in.log.Info("command rejected", "command", cmd.Name, "error", ce.Msg)
		in.sess.Metrics().ResultError()
		return in.sess.Send(markup.New("r").SetAttr("e", ce.Msg))
	}
	return err
}

func (in *Interpreter) handleClientOnly(cmd *markup.Element) error {
	return &ProtocolDesyncError{Command: cmd.Name, Msg: "server sent a client-only element"}
}

// toScreen converts inbound text for display.
func (in *Interpreter) toScreen(s string) string {
	if in.opts.PCCharset {
		return terminal.FromPCCharset(s)
	}
	return s
}

// toWire converts keyin text for the server.
func (in *Interpreter) toWire(s string) string {
	if in.opts.PCCharset {
		return terminal.ToPCCharset(s)
	}
	return s
}
