package terminal

// StateSave captures the cursor, window, display attribute and cursor
// mode. The last three words are a sentinel checked by StateRestore.
func (e *Engine) StateSave() []uint32 {
	return []uint32{
		uint32(e.h), uint32(e.v),
		uint32(e.win.Top), uint32(e.win.Bottom), uint32(e.win.Left), uint32(e.win.Right),
		uint32(e.attr),
		uint32(e.cursorState), uint32(e.cursorShape),
		stateSentinel, stateSentinel, stateSentinel,
	}
}

// StateRestore applies a state captured by StateSave. It returns false and
// changes nothing when s is short, lacks the sentinel or does not fit the
// grid.
func (e *Engine) StateRestore(s []uint32) bool {
	if len(s) < StateSize || s[StateSize-1] != stateSentinel {
		return false
	}
	win := Rect{Top: int(s[2]), Bottom: int(s[3]), Left: int(s[4]), Right: int(s[5])}
	h, v := int(s[0]), int(s[1])
	if win.Empty() || win.Bottom >= e.screen.Height || win.Right >= e.screen.Width ||
		h >= e.screen.Width || v >= e.screen.Height {
		return false
	}
	e.h, e.v = h, v
	e.win = win
	e.attr = Attr(s[6])
	e.cursorState = CursorState(s[7])
	e.cursorShape = CursorShape(s[8])
	e.sethv()
	if e.cursorState == CursorOn {
		e.setCursor(e.cursorShape)
	} else {
		e.setCursor(ShapeNone)
	}
	return true
}

// CharSave returns the characters of the window row-major.
func (e *Engine) CharSave() []rune {
	cells := e.screen.GetCells(e.win)
	out := make([]rune, len(cells))
	for i, c := range cells {
		out[i] = c.Char
	}
	return out
}

// CharRestore writes chars into the window row-major in the current
// attribute.
func (e *Engine) CharRestore(chars []rune) {
	if len(chars) == 0 {
		return
	}
	e.putChars(e.win, chars)
}

// WinSave returns the cells of the window row-major.
func (e *Engine) WinSave() []Cell {
	return e.screen.GetCells(e.win)
}

// WinRestore writes cells into the window row-major.
func (e *Engine) WinRestore(cells []Cell) {
	if len(cells) == 0 {
		return
	}
	e.putCells(e.win, cells)
}

// ScreenSnapshot is a full grid plus engine state.
type ScreenSnapshot struct {
	Cells []Cell
	State []uint32
}

// ScreenSave captures the whole grid and the engine state.
func (e *Engine) ScreenSave() ScreenSnapshot {
	full := Rect{Top: 0, Bottom: e.screen.Height - 1, Left: 0, Right: e.screen.Width - 1}
	return ScreenSnapshot{Cells: e.screen.GetCells(full), State: e.StateSave()}
}

// ScreenRestore writes back the grid and then the state. The cells are
// restored even when the state turns out to be invalid, in which case it
// returns false.
func (e *Engine) ScreenRestore(s ScreenSnapshot) bool {
	full := Rect{Top: 0, Bottom: e.screen.Height - 1, Left: 0, Right: e.screen.Width - 1}
	if len(s.Cells) > 0 {
		e.putCells(full, s.Cells)
	}
	if len(s.Cells) < e.screen.Width*e.screen.Height {
		return false
	}
	return e.StateRestore(s.State)
}
