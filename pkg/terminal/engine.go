// Package terminal implements the character grid terminal and the blocking
// line editor driven by keyin and display commands.
package terminal

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

const (
	// StateSize is the length of a state snapshot.
	StateSize = 12
	// stateSentinel marks the tail of a valid state snapshot.
	stateSentinel = 0x0DBC

	keyBufferSize  = 160
	maxTraps       = 128
	maxPendingTrap = 16
	maxEndKeys     = 128
)

// Painter receives rendering callbacks. Every grid operation reports its
// changed cells with a single Repaint call.
type Painter interface {
	Repaint(r Rect)
	MoveCursor(h, v int)
	SetCursor(shape CursorShape)
	Beep()
}

type nopPainter struct{}

func (nopPainter) Repaint(Rect)          {}
func (nopPainter) MoveCursor(int, int)   {}
func (nopPainter) SetCursor(CursorShape) {}
func (nopPainter) Beep()                 {}

// Options configures a new Engine.
type Options struct {
	Width  int
	Height int
	// KeyinUpper folds every typed character to upper case.
	KeyinUpper bool
	// KeyinReverse inverts the case of every typed character.
	KeyinReverse bool
	Painter      Painter
	Logger       *slog.Logger
}

// DefaultOptions returns an 80x25 headless configuration.
func DefaultOptions() Options {
	return Options{Width: 80, Height: 25}
}

type keyinFlags uint32

const (
	flagEdit       keyinFlags = 0x00000001
	flagEditOn     keyinFlags = 0x00000002
	flagDigitEntry keyinFlags = 0x00000008
	flagAutoEnter  keyinFlags = 0x00000080
	flagNoEcho     keyinFlags = 0x00000100
	flagEchoSecret keyinFlags = 0x00000200
	flagUpper      keyinFlags = 0x00010000
	flagLower      keyinFlags = 0x00020000
	flagInvert     keyinFlags = 0x00040000
	flagTimeout    keyinFlags = 0x00100000
	flagDComma     keyinFlags = 0x00200000
	caseFlags                 = flagUpper | flagLower | flagInvert
)

// Engine is the terminal grid plus keyin session state. Grid and keyin
// configuration are only touched by the goroutine that interprets
// commands; the key buffer and trap tables are shared with key sources and
// guarded by mu.
type Engine struct {
	screen  *Screen
	painter Painter
	log     *slog.Logger

	h, v        int
	win         Rect
	attr        Attr
	cursorState CursorState
	cursorShape CursorShape
	dbl         Double
	autoRoll    bool

	kflags       keyinFlags
	eschar       rune
	kl           int
	timeout      time.Duration
	lastEndKey   Key
	keyinUpper   bool
	keyinReverse bool
	cancelKey    FuncKey
	interruptKey FuncKey
	endKeys      []Key

	mu               sync.Mutex
	wake             chan struct{}
	abort            chan struct{}
	abortOnce        sync.Once
	onAction         func()
	traps            trapTable
	ring             [keyBufferSize]Key
	head, tail       int
	pending          []Key
	actionPending    bool
	interruptPending bool
	breakPending     bool
}

// New creates an engine with a blank grid.
func New(opts Options) *Engine {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.Height <= 0 {
		opts.Height = 25
	}
	p := opts.Painter
	if p == nil {
		p = nopPainter{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Engine{
		screen:       NewScreen(opts.Width, opts.Height),
		painter:      p,
		log:          log,
		win:          Rect{Top: 0, Bottom: opts.Height - 1, Left: 0, Right: opts.Width - 1},
		attr:         DefaultAttr,
		cursorState:  CursorNormal,
		cursorShape:  ShapeBlock,
		eschar:       '*',
		keyinUpper:   opts.KeyinUpper,
		keyinReverse: opts.KeyinReverse && !opts.KeyinUpper,
		cancelKey:    FuncCancel,
		interruptKey: FuncInterrupt,
		endKeys:      []Key{Func(FuncEnter)},
		wake:         make(chan struct{}, 1),
		abort:        make(chan struct{}),
		pending:      make([]Key, 0, maxPendingTrap),
	}
	e.painter.SetCursor(ShapeNone)
	return e
}

// Screen returns the underlying grid.
func (e *Engine) Screen() *Screen { return e.screen }

// SetPainter replaces the rendering collaborator.
func (e *Engine) SetPainter(p Painter) {
	if p == nil {
		p = nopPainter{}
	}
	e.painter = p
}

// SetActionNotifier installs the callback run whenever a trap, interrupt or
// break becomes pending. It is called with the session lock held and must
// not block or call back into the engine.
func (e *Engine) SetActionNotifier(fn func()) {
	e.mu.Lock()
	e.onAction = fn
	e.mu.Unlock()
}

// SetCancelKey changes the key that blanks a field during keyin.
func (e *Engine) SetCancelKey(f FuncKey) { e.cancelKey = f }

// SetInterruptKey changes the key reported for an interrupt.
func (e *Engine) SetInterruptKey(f FuncKey) { e.interruptKey = f }

// InterruptKey returns the key reported for an interrupt.
func (e *Engine) InterruptKey() FuncKey { return e.interruptKey }

// Abort permanently unblocks any keyin in progress and every later one.
func (e *Engine) Abort() {
	e.abortOnce.Do(func() { close(e.abort) })
}

func (e *Engine) aborted() bool {
	select {
	case <-e.abort:
		return true
	default:
		return false
	}
}

// Beep sounds the bell.
func (e *Engine) Beep() { e.painter.Beep() }

// Size returns the grid dimensions.
func (e *Engine) Size() (width, height int) {
	return e.screen.Width, e.screen.Height
}

// Cursor returns the cursor position relative to the window, 1-based.
func (e *Engine) Cursor() (h, v int) {
	return e.h - e.win.Left + 1, e.v - e.win.Top + 1
}

// ScreenCursor returns the zero based cursor position on the grid.
func (e *Engine) ScreenCursor() (h, v int) {
	return e.h, e.v
}

// Window returns the zero based scroll window.
func (e *Engine) Window() Rect { return e.win }

// Attr returns the current display attribute.
func (e *Engine) Attr() Attr { return e.attr }

// CursorState returns the cursor visibility mode.
func (e *Engine) CursorState() CursorState { return e.cursorState }

// SetAutoRoll controls whether nl scrolls the window at the bottom edge.
func (e *Engine) SetAutoRoll(on bool) { e.autoRoll = on }

// AutoRoll reports the nl scrolling mode.
func (e *Engine) AutoRoll() bool { return e.autoRoll }

// Double returns the glyph variant selector.
func (e *Engine) Double() Double { return e.dbl }

// SetDouble replaces the glyph variant selector.
func (e *Engine) SetDouble(d Double) { e.dbl = d & DoubleBoth }

func (e *Engine) sethv() {
	e.painter.MoveCursor(e.h, e.v)
}

func (e *Engine) setCursor(shape CursorShape) {
	e.painter.SetCursor(shape)
}

// repaint reports the bounding rectangle of rs to the painter in one call.
func (e *Engine) repaint(rs ...Rect) {
	u := Rect{Bottom: -1}
	for _, r := range rs {
		u = u.Union(r)
	}
	if !u.Empty() {
		e.painter.Repaint(u)
	}
}

func (e *Engine) eraseRect(r Rect) {
	e.screen.EraseRect(r, e.attr)
	e.painter.Repaint(r)
}

func (e *Engine) moveRect(dir Direction, r Rect) {
	e.screen.MoveRect(dir, r)
	e.painter.Repaint(r)
}

func (e *Engine) putChars(r Rect, chars []rune) {
	e.screen.PutChars(r, chars, e.attr)
	e.painter.Repaint(r)
}

func (e *Engine) putCells(r Rect, cells []Cell) {
	e.screen.PutCells(r, cells)
	e.painter.Repaint(r)
}
