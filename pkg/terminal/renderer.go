package terminal

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// TerminalRenderer paints an engine grid onto a tcell screen and feeds
// keyboard events back into the engine.
type TerminalRenderer struct {
	screen  tcell.Screen
	grid    *Screen
	keys    *KeyMapper
	mutex   sync.Mutex
	running bool
	cursorX int
	cursorY int
	shape   CursorShape

	// suspended is set between Suspend and Resume.
	suspended bool

	overlay   func(tcell.Screen)
	intercept func(*tcell.EventKey) bool
}

// NewTerminalRenderer creates a renderer on the real terminal.
func NewTerminalRenderer(grid *Screen) (*TerminalRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}
	return NewTerminalRendererWithScreen(screen, grid), nil
}

// NewTerminalRendererWithScreen creates a renderer on an existing tcell
// screen, such as a simulation screen.
func NewTerminalRendererWithScreen(screen tcell.Screen, grid *Screen) *TerminalRenderer {
	return &TerminalRenderer{
		screen: screen,
		grid:   grid,
		keys:   NewKeyMapper(),
	}
}

// KeyMapper returns the event translator.
func (tr *TerminalRenderer) KeyMapper() *KeyMapper { return tr.keys }

// Start initializes the screen.
func (tr *TerminalRenderer) Start() error {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()

	if tr.running {
		return fmt.Errorf("renderer is already running")
	}
	if err := tr.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	tr.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorSilver))
	tr.screen.Clear()
	tr.screen.HideCursor()
	tr.running = true
	tr.paint(Rect{Top: 0, Bottom: tr.grid.Height - 1, Left: 0, Right: tr.grid.Width - 1})
	tr.screen.Show()
	return nil
}

// Stop restores the terminal.
func (tr *TerminalRenderer) Stop() error {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()

	if !tr.running {
		return nil
	}
	tr.running = false
	tr.screen.Fini()
	return nil
}

// Suspend hands the terminal back to the process, for running a local
// command. Painting is skipped until Resume.
func (tr *TerminalRenderer) Suspend() error {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()
	if !tr.running {
		return nil
	}
	if err := tr.screen.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend screen: %w", err)
	}
	tr.running = false
	tr.suspended = true
	return nil
}

// Resume retakes the terminal after Suspend and repaints the grid.
func (tr *TerminalRenderer) Resume() error {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()
	if !tr.suspended {
		return nil
	}
	if err := tr.screen.Resume(); err != nil {
		return fmt.Errorf("failed to resume screen: %w", err)
	}
	tr.suspended = false
	tr.running = true
	tr.screen.Clear()
	tr.paint(Rect{Top: 0, Bottom: tr.grid.Height - 1, Left: 0, Right: tr.grid.Width - 1})
	if tr.overlay != nil {
		tr.overlay(tr.screen)
	}
	tr.screen.Show()
	return nil
}

// Repaint copies r from the grid to the screen.
func (tr *TerminalRenderer) Repaint(r Rect) {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()
	if !tr.running {
		return
	}
	tr.paint(r)
	if tr.overlay != nil {
		tr.overlay(tr.screen)
	}
	tr.screen.Show()
}

// SetOverlay installs a drawing function run after every repaint, so that
// local chrome stays on top of server output. Passing nil removes it and
// repaints the whole grid.
func (tr *TerminalRenderer) SetOverlay(draw func(tcell.Screen)) {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()
	tr.overlay = draw
	if !tr.running {
		return
	}
	if draw == nil {
		tr.paint(Rect{Top: 0, Bottom: tr.grid.Height - 1, Left: 0, Right: tr.grid.Width - 1})
	} else {
		draw(tr.screen)
	}
	tr.screen.Show()
}

// SetInterceptor routes key events to fn before translation. Events fn
// reports as consumed never reach the engine.
func (tr *TerminalRenderer) SetInterceptor(fn func(*tcell.EventKey) bool) {
	tr.mutex.Lock()
	tr.intercept = fn
	tr.mutex.Unlock()
}

func (tr *TerminalRenderer) paint(r Rect) {
	for y := max(r.Top, 0); y <= r.Bottom && y < tr.grid.Height; y++ {
		for x := max(r.Left, 0); x <= r.Right && x < tr.grid.Width; x++ {
			cell := tr.grid.CellAt(x, y)
			ch := cell.Char
			// Each grid cell is one column; wide and zero width runes would
			// shift the rest of the row.
			if runewidth.RuneWidth(ch) != 1 {
				ch = '?'
				if cell.Char == 0 || cell.Char == ' ' {
					ch = ' '
				}
			}
			tr.screen.SetContent(x, y, ch, nil, attrToStyle(cell.Attr))
		}
	}
}

// MoveCursor places the terminal cursor.
func (tr *TerminalRenderer) MoveCursor(h, v int) {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()
	tr.cursorX, tr.cursorY = h, v
	if tr.running && tr.shape != ShapeNone {
		tr.screen.ShowCursor(h, v)
		tr.screen.Show()
	}
}

// SetCursor shows the cursor in the given shape or hides it.
func (tr *TerminalRenderer) SetCursor(shape CursorShape) {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()
	tr.shape = shape
	if !tr.running {
		return
	}
	switch shape {
	case ShapeNone:
		tr.screen.HideCursor()
	case ShapeUnderline:
		tr.screen.SetCursorStyle(tcell.CursorStyleSteadyUnderline)
		tr.screen.ShowCursor(tr.cursorX, tr.cursorY)
	case ShapeHalf:
		tr.screen.SetCursorStyle(tcell.CursorStyleSteadyBar)
		tr.screen.ShowCursor(tr.cursorX, tr.cursorY)
	default:
		tr.screen.SetCursorStyle(tcell.CursorStyleSteadyBlock)
		tr.screen.ShowCursor(tr.cursorX, tr.cursorY)
	}
	tr.screen.Show()
}

// Beep rings the terminal bell.
func (tr *TerminalRenderer) Beep() {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()
	if tr.running {
		_ = tr.screen.Beep()
	}
}

// Run delivers keyboard events to sink until ctx is done or the screen is
// finalized. Resize events repaint the whole grid.
func (tr *TerminalRenderer) Run(ctx context.Context, sink func(Key)) {
	go func() {
		<-ctx.Done()
		tr.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()
	for {
		ev := tr.screen.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			tr.mutex.Lock()
			intercept := tr.intercept
			tr.mutex.Unlock()
			if intercept != nil && intercept(ev) {
				continue
			}
			if k, ok := tr.keys.Translate(ev); ok {
				sink(k)
			}
		case *tcell.EventResize:
			tr.mutex.Lock()
			if tr.running {
				tr.screen.Clear()
				tr.paint(Rect{Top: 0, Bottom: tr.grid.Height - 1, Left: 0, Right: tr.grid.Width - 1})
				if tr.overlay != nil {
					tr.overlay(tr.screen)
				}
				tr.screen.Sync()
			}
			tr.mutex.Unlock()
		}
	}
}

// attrToStyle converts a cell attribute to a tcell style.
func attrToStyle(a Attr) tcell.Style {
	style := tcell.StyleDefault.
		Foreground(colorToTcell(a.Foreground())).
		Background(colorToTcell(a.Background()))
	if a.Has(AttrBold) {
		style = style.Bold(true)
	}
	if a.Has(AttrUnderline) {
		style = style.Underline(true)
	}
	if a.Has(AttrReverse) {
		style = style.Reverse(true)
	}
	if a.Has(AttrBlink) {
		style = style.Blink(true)
	}
	return style
}

// colorToTcell converts a palette index to a tcell color.
func colorToTcell(c Color) tcell.Color {
	switch c {
	case ColorBlack:
		return tcell.ColorBlack
	case ColorRed:
		return tcell.ColorMaroon
	case ColorGreen:
		return tcell.ColorGreen
	case ColorYellow:
		return tcell.ColorOlive
	case ColorBlue:
		return tcell.ColorNavy
	case ColorMagenta:
		return tcell.ColorPurple
	case ColorCyan:
		return tcell.ColorTeal
	case ColorWhite:
		return tcell.ColorSilver
	}
	if c >= 0 && c < 256 {
		return tcell.PaletteColor(int(c))
	}
	return tcell.ColorDefault
}
