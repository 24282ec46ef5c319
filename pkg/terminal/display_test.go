package terminal

import (
	"testing"
)

type recordingPainter struct {
	repaints []Rect
	moves    int
	shapes   []CursorShape
	beeps    int
}

func (p *recordingPainter) Repaint(r Rect)          { p.repaints = append(p.repaints, r) }
func (p *recordingPainter) MoveCursor(h, v int)     { p.moves++ }
func (p *recordingPainter) SetCursor(s CursorShape) { p.shapes = append(p.shapes, s) }
func (p *recordingPainter) Beep()                   { p.beeps++ }

func newTestEngine(t *testing.T) (*Engine, *recordingPainter) {
	t.Helper()
	p := &recordingPainter{}
	opts := DefaultOptions()
	opts.Painter = p
	return New(opts), p
}

func TestWindowClamping(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetWindowTB(3, 10)
	e.SetWindowLR(5, 20)

	e.VA(50)
	if _, v := e.ScreenCursor(); v != 9 {
		t.Errorf("VA(50) row = %d, want 9", v)
	}
	if _, v := e.Cursor(); v != 8 {
		t.Errorf("VA(50) window row = %d, want 8", v)
	}

	e.HA(-100)
	if h, _ := e.ScreenCursor(); h != 4 {
		t.Errorf("HA(-100) column = %d, want 4", h)
	}

	e.VA(-100)
	if _, v := e.ScreenCursor(); v != 2 {
		t.Errorf("VA(-100) row = %d, want 2", v)
	}
}

func TestAbsolutePositioning(t *testing.T) {
	tests := []struct {
		name  string
		move  func(e *Engine)
		wantH int
		wantV int
	}{
		{"hv inside", func(e *Engine) { e.HV(3, 2) }, 6, 3},
		{"hv column too large", func(e *Engine) { e.HV(40, 2) }, 4, 2},
		{"h zero ignored", func(e *Engine) { e.H(0) }, 4, 2},
		{"v last row", func(e *Engine) { e.V(8) }, 4, 9},
		{"v past window ignored", func(e *Engine) { e.V(9) }, 4, 2},
		{"end down", func(e *Engine) { e.EndDown() }, 19, 9},
		{"end up", func(e *Engine) { e.EndUp() }, 19, 2},
		{"home down", func(e *Engine) { e.HomeDown() }, 4, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			e.SetWindowTB(3, 10)
			e.SetWindowLR(5, 20)
			tt.move(e)
			h, v := e.ScreenCursor()
			if h != tt.wantH || v != tt.wantV {
				t.Errorf("cursor = (%d,%d), want (%d,%d)", h, v, tt.wantH, tt.wantV)
			}
		})
	}
}

func TestSetWindowRejectsInvalid(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetWindowTB(10, 3)
	e.SetWindowLR(0, 20)
	e.SetWindowLR(5, 81)
	want := Rect{Top: 0, Bottom: 24, Left: 0, Right: 79}
	if got := e.Window(); got != want {
		t.Errorf("Window() = %+v, want %+v", got, want)
	}
}

func TestDisplayTruncatesAtWindowEdge(t *testing.T) {
	e, p := newTestEngine(t)
	e.SetWindowLR(1, 10)
	e.HV(8, 1)
	p.repaints = nil

	e.Display("abcdef")

	if got := e.Screen().Row(0)[7:11]; got != "abc " {
		t.Errorf("row = %q, want %q", got, "abc ")
	}
	if h, _ := e.ScreenCursor(); h != 9 {
		t.Errorf("cursor column = %d, want 9", h)
	}
	if len(p.repaints) != 1 {
		t.Errorf("repaints = %d, want 1", len(p.repaints))
	}
}

func TestEditOperationsRepaintOnce(t *testing.T) {
	rowsFrom2 := Rect{Top: 1, Bottom: 24, Left: 0, Right: 79}
	row2 := Rect{Top: 1, Bottom: 1, Left: 0, Right: 79}
	window := Rect{Top: 0, Bottom: 24, Left: 0, Right: 79}

	tests := []struct {
		name string
		op   func(e *Engine)
		want Rect
	}{
		{"erase from", (*Engine).EraseFrom, rowsFrom2},
		{"open line", (*Engine).OpenLine, rowsFrom2},
		{"close line", (*Engine).CloseLine, rowsFrom2},
		{"insert char", func(e *Engine) { e.InsertChar(10, 2) }, row2},
		{"delete char", func(e *Engine) { e.DeleteChar(10, 2) }, row2},
		{"roll up", (*Engine).RollUp, window},
		{"roll right", (*Engine).RollRight, window},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, p := newTestEngine(t)
			e.HV(3, 2)
			p.repaints = nil

			tt.op(e)

			if len(p.repaints) != 1 {
				t.Fatalf("repaints = %v, want one", p.repaints)
			}
			if p.repaints[0] != tt.want {
				t.Errorf("repaint = %+v, want %+v", p.repaints[0], tt.want)
			}
		})
	}
}

func TestNewLineScrollRepaintsOnce(t *testing.T) {
	e, p := newTestEngine(t)
	e.HV(1, 25)
	e.Display("x")
	p.repaints = nil

	e.NL(3)

	if len(p.repaints) != 1 {
		t.Fatalf("repaints = %v, want one", p.repaints)
	}
	if got := e.Screen().Row(21)[:1]; got != "x" {
		t.Errorf("row 22 = %q, want scrolled text", got)
	}
}

func TestDisplayFlowDown(t *testing.T) {
	e, _ := newTestEngine(t)
	e.FlowDown()
	e.HV(2, 1)
	e.Display("xyz")
	for i, want := range "xyz" {
		if got := e.Screen().CellAt(1, i).Char; got != want {
			t.Errorf("cell (1,%d) = %q, want %q", i, got, want)
		}
	}
	if _, v := e.ScreenCursor(); v != 3 {
		t.Errorf("cursor row = %d, want 3", v)
	}
	e.FlowRight()
	if e.Attr().Has(AttrFlowDown) {
		t.Error("FlowRight() left flow down set")
	}
}

func TestDisplayRepeat(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetWindowLR(1, 5)
	e.DisplayRepeat('-', 10)
	if got := e.Screen().Row(0)[:6]; got != "----- " {
		t.Errorf("row = %q", got)
	}
	if h, _ := e.ScreenCursor(); h != 4 {
		t.Errorf("cursor column = %d, want 4", h)
	}
}

func TestDisplayUsesAttribute(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetColor(ColorRed)
	e.SetBgColor(ColorBlue)
	e.SetStyle(AttrBold, true)
	e.DisplayRune('x')

	want := Attr(ColorRed).WithBackground(ColorBlue) | AttrBold
	if got := e.Screen().CellAt(0, 0).Attr; got != want {
		t.Errorf("attr = %#x, want %#x", got, want)
	}
	e.AllOff()
	if e.Attr().Has(AttrBold) {
		t.Error("AllOff() kept bold")
	}
	if e.Attr().Foreground() != ColorRed {
		t.Error("AllOff() changed the color")
	}
}

func TestCursorOffSuppressesMoves(t *testing.T) {
	e, p := newTestEngine(t)
	e.CursorOff()
	p.moves = 0
	e.Display("abc")
	if p.moves != 0 {
		t.Errorf("moves = %d, want 0", p.moves)
	}
	e.CursorNorm()
	e.Display("d")
	if p.moves != 1 {
		t.Errorf("moves = %d, want 1", p.moves)
	}
}

func TestCursorShape(t *testing.T) {
	e, p := newTestEngine(t)
	p.shapes = nil
	e.SetCursorShape(ShapeUnderline)
	if len(p.shapes) != 0 {
		t.Errorf("shape applied while cursor not on: %v", p.shapes)
	}
	e.CursorOn()
	e.SetCursorShape(ShapeHalf)
	want := []CursorShape{ShapeBlock, ShapeHalf}
	if len(p.shapes) != len(want) || p.shapes[0] != want[0] || p.shapes[1] != want[1] {
		t.Errorf("shapes = %v, want %v", p.shapes, want)
	}
}

func TestNewLineScrollsWindow(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetWindowTB(1, 3)
	for _, s := range []string{"a", "b", "c"} {
		e.Display(s)
		e.NL(1)
	}
	s := e.Screen()
	if s.CellAt(0, 0).Char != 'b' || s.CellAt(0, 1).Char != 'c' || s.CellAt(0, 2).Char != ' ' {
		t.Errorf("rows = %q %q %q", s.Row(0)[:1], s.Row(1)[:1], s.Row(2)[:1])
	}
	if h, v := e.ScreenCursor(); h != 0 || v != 2 {
		t.Errorf("cursor = (%d,%d), want (0,2)", h, v)
	}
	if s.CellAt(0, 3).Char != ' ' {
		t.Error("scroll leaked below the window")
	}
}

func TestInsertDeleteChar(t *testing.T) {
	tests := []struct {
		name string
		op   func(e *Engine)
		want string
	}{
		{"insert", func(e *Engine) { e.InsertChar(5, 1) }, "a bcdf"},
		{"delete", func(e *Engine) { e.DeleteChar(5, 1) }, "acde f"},
		{"insert before cursor ignored", func(e *Engine) { e.InsertChar(1, 1) }, "abcdef"},
		{"delete out of window ignored", func(e *Engine) { e.DeleteChar(81, 1) }, "abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			e.Display("abcdef")
			e.HV(2, 1)
			tt.op(e)
			if got := e.Screen().Row(0)[:6]; got != tt.want {
				t.Errorf("row = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInsertCharWrapsRows(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetWindowLR(1, 3)
	e.Display("abc")
	e.HV(1, 2)
	e.Display("def")
	e.HV(3, 1)
	e.InsertChar(2, 2)
	s := e.Screen()
	if got := s.Row(0)[:3] + s.Row(1)[:3]; got != "ab cdf" {
		t.Errorf("rows = %q, want %q", got, "ab cdf")
	}
}

func TestEraseOperations(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetWindowTB(1, 2)
	e.SetWindowLR(1, 4)
	e.Display("abcd")
	e.HV(1, 2)
	e.Display("efgh")

	e.HV(3, 1)
	e.EraseLine()
	if got := e.Screen().Row(0)[:4]; got != "ab  " {
		t.Errorf("EraseLine row = %q", got)
	}

	e.HV(2, 1)
	e.EraseFrom()
	if got := e.Screen().Row(0)[:4] + e.Screen().Row(1)[:4]; got != "a       " {
		t.Errorf("EraseFrom rows = %q", got)
	}

	e.Display("x")
	e.Erase()
	if got := e.Screen().Row(0)[:4]; got != "    " {
		t.Errorf("Erase row = %q", got)
	}
	if h, v := e.ScreenCursor(); h != 0 || v != 0 {
		t.Errorf("Erase cursor = (%d,%d)", h, v)
	}
}

func TestRolls(t *testing.T) {
	setup := func(t *testing.T) *Engine {
		e, _ := newTestEngine(t)
		e.SetWindowTB(1, 2)
		e.SetWindowLR(1, 2)
		e.Display("ab")
		e.HV(1, 2)
		e.Display("cd")
		return e
	}
	tests := []struct {
		name string
		op   func(e *Engine)
		want string
	}{
		{"up", (*Engine).RollUp, "cd  "},
		{"down", (*Engine).RollDown, "  ab"},
		{"left", (*Engine).RollLeft, "b d "},
		{"right", (*Engine).RollRight, " a c"},
		{"insert line", func(e *Engine) { e.HV(1, 1); e.InsertLine() }, "  ab"},
		{"delete line", func(e *Engine) { e.HV(1, 1); e.DeleteLine() }, "cd  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)
			tt.op(e)
			s := e.Screen()
			if got := s.Row(0)[:2] + s.Row(1)[:2]; got != tt.want {
				t.Errorf("rows = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResetWindow(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetWindowTB(3, 10)
	e.SetWindowLR(5, 20)
	e.HV(2, 2)
	e.ResetWindow()
	if got := e.Window(); got != (Rect{Top: 0, Bottom: 24, Left: 0, Right: 79}) {
		t.Errorf("Window() = %+v", got)
	}
	if h, v := e.ScreenCursor(); h != 0 || v != 0 {
		t.Errorf("cursor = (%d,%d)", h, v)
	}
}
