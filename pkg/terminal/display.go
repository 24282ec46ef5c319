package terminal

// H moves the cursor to column h of the window, 1-based. Out of range
// values are ignored.
func (e *Engine) H(h int) {
	if h < 1 || h > e.win.Width() {
		return
	}
	e.h = h + e.win.Left - 1
	e.sethv()
}

// V moves the cursor to row v of the window, 1-based. Out of range values
// are ignored.
func (e *Engine) V(v int) {
	if v < 1 || v > e.win.Height() {
		return
	}
	e.v = v + e.win.Top - 1
	e.sethv()
}

// HV moves the cursor within the window, 1-based. The move is ignored
// unless both coordinates are in range.
func (e *Engine) HV(h, v int) {
	if h < 1 || h > e.win.Width() || v < 1 || v > e.win.Height() {
		return
	}
	e.h = h + e.win.Left - 1
	e.v = v + e.win.Top - 1
	e.sethv()
}

// HA moves the cursor n columns, clamped to the window.
func (e *Engine) HA(n int) {
	e.h = min(max(e.h+n, e.win.Left), e.win.Right)
	e.sethv()
}

// VA moves the cursor n rows, clamped to the window.
func (e *Engine) VA(n int) {
	e.v = min(max(e.v+n, e.win.Top), e.win.Bottom)
	e.sethv()
}

// NL moves to the first column n rows down, scrolling the window when the
// cursor passes the bottom row.
func (e *Engine) NL(n int) {
	if n < 1 {
		return
	}
	e.h = e.win.Left
	scrolled := false
	for e.v += n; e.v > e.win.Bottom; e.v-- {
		e.scrollGrid(MoveUp)
		scrolled = true
	}
	if scrolled {
		e.repaint(e.win)
	}
	e.sethv()
}

// SetWindowTB sets the window rows, 1-based inclusive, and homes the
// cursor. Invalid bounds are ignored.
func (e *Engine) SetWindowTB(top, bottom int) {
	n := e.screen.Height
	if top < 1 || top > n || bottom < 1 || bottom > n || top > bottom {
		return
	}
	e.win.Top = top - 1
	e.win.Bottom = bottom - 1
	e.h, e.v = e.win.Left, e.win.Top
	e.sethv()
}

// SetWindowLR sets the window columns, 1-based inclusive, and homes the
// cursor. Invalid bounds are ignored.
func (e *Engine) SetWindowLR(left, right int) {
	w := e.screen.Width
	if left < 1 || left > w || right < 1 || right > w || left > right {
		return
	}
	e.win.Left = left - 1
	e.win.Right = right - 1
	e.h, e.v = e.win.Left, e.win.Top
	e.sethv()
}

// ResetWindow makes the window the full screen and homes the cursor.
func (e *Engine) ResetWindow() {
	e.win = Rect{Top: 0, Bottom: e.screen.Height - 1, Left: 0, Right: e.screen.Width - 1}
	e.h, e.v = 0, 0
	e.sethv()
}

// HomeUp moves to the upper left corner of the window.
func (e *Engine) HomeUp() {
	e.h, e.v = e.win.Left, e.win.Top
	e.sethv()
}

// HomeDown moves to the lower left corner of the window.
func (e *Engine) HomeDown() {
	e.h, e.v = e.win.Left, e.win.Bottom
	e.sethv()
}

// EndUp moves to the upper right corner of the window.
func (e *Engine) EndUp() {
	e.h, e.v = e.win.Right, e.win.Top
	e.sethv()
}

// EndDown moves to the lower right corner of the window.
func (e *Engine) EndDown() {
	e.h, e.v = e.win.Right, e.win.Bottom
	e.sethv()
}

// FlowDown makes text display fill down the current column.
func (e *Engine) FlowDown() { e.attr |= AttrFlowDown }

// FlowRight restores left to right text display.
func (e *Engine) FlowRight() { e.attr &^= AttrFlowDown }

// Erase blanks the window and homes the cursor.
func (e *Engine) Erase() {
	e.eraseRect(e.win)
	e.h, e.v = e.win.Left, e.win.Top
	e.sethv()
}

// EraseLine blanks from the cursor to the right edge of the window.
func (e *Engine) EraseLine() {
	e.eraseRect(Rect{Top: e.v, Bottom: e.v, Left: e.h, Right: e.win.Right})
}

// EraseFrom blanks from the cursor to the end of the window.
func (e *Engine) EraseFrom() {
	line := Rect{Top: e.v, Bottom: e.v, Left: e.h, Right: e.win.Right}
	rest := Rect{Top: e.v + 1, Bottom: e.win.Bottom, Left: e.win.Left, Right: e.win.Right}
	e.screen.EraseRect(line, e.attr)
	if !rest.Empty() {
		e.screen.EraseRect(rest, e.attr)
	}
	e.repaint(line, rest)
}

// scrollGrid shifts the window one cell in dir and blanks the vacated
// edge, without repainting.
func (e *Engine) scrollGrid(dir Direction) {
	edge := e.win
	switch dir {
	case MoveUp:
		edge.Top = e.win.Bottom
	case MoveDown:
		edge.Bottom = e.win.Top
	case MoveLeft:
		edge.Left = e.win.Right
	case MoveRight:
		edge.Right = e.win.Left
	}
	e.screen.MoveRect(dir, e.win)
	e.screen.EraseRect(edge, e.attr)
}

func (e *Engine) RollUp() {
	e.scrollGrid(MoveUp)
	e.repaint(e.win)
}

func (e *Engine) RollDown() {
	e.scrollGrid(MoveDown)
	e.repaint(e.win)
}

func (e *Engine) RollLeft() {
	e.scrollGrid(MoveLeft)
	e.repaint(e.win)
}

func (e *Engine) RollRight() {
	e.scrollGrid(MoveRight)
	e.repaint(e.win)
}

// OpenLine pushes the rest of the cursor row onto a new line below it.
func (e *Engine) OpenLine() {
	below := Rect{Top: e.v + 1, Bottom: e.win.Bottom, Left: e.win.Left, Right: e.win.Right}
	tail := Rect{Top: e.v, Bottom: e.v + 1, Left: e.h, Right: e.win.Right}
	e.screen.MoveRect(MoveDown, below)
	e.screen.MoveRect(MoveDown, tail)
	e.repaint(below, tail)
}

// CloseLine is the inverse of OpenLine.
func (e *Engine) CloseLine() {
	below := Rect{Top: e.v + 1, Bottom: e.win.Bottom, Left: e.win.Left, Right: e.win.Right}
	tail := Rect{Top: e.v, Bottom: e.v + 1, Left: e.h, Right: e.win.Right}
	e.screen.MoveRect(MoveUp, tail)
	e.screen.MoveRect(MoveUp, below)
	e.repaint(below, tail)
}

func (e *Engine) InsertLine() {
	e.moveRect(MoveDown, Rect{Top: e.v, Bottom: e.win.Bottom, Left: e.win.Left, Right: e.win.Right})
}

func (e *Engine) DeleteLine() {
	e.moveRect(MoveUp, Rect{Top: e.v, Bottom: e.win.Bottom, Left: e.win.Left, Right: e.win.Right})
}

// charSpan resolves a 1-based window position at or after the cursor and
// returns the rows it spans with the linear cell offsets of the cursor and
// the target within them.
func (e *Engine) charSpan(h, v int) (r Rect, from, to int, ok bool) {
	if h < 1 || h > e.win.Width() || v < 1 || v > e.win.Height() {
		return Rect{}, 0, 0, false
	}
	h = h + e.win.Left - 1
	v = v + e.win.Top - 1
	if v < e.v || (v == e.v && h < e.h) {
		return Rect{}, 0, 0, false
	}
	r = Rect{Top: e.v, Bottom: v, Left: e.win.Left, Right: e.win.Right}
	from = e.h - e.win.Left
	to = (v-e.v)*r.Width() + h - e.win.Left
	return r, from, to, true
}

// InsertChar shifts the cells from the cursor up to the window position
// (h, v) one place toward it, wrapping across rows, and blanks the cursor
// cell. The cell at (h, v) is lost.
func (e *Engine) InsertChar(h, v int) {
	r, from, to, ok := e.charSpan(h, v)
	if !ok {
		return
	}
	cells := e.screen.GetCells(r)
	copy(cells[from+1:to+1], cells[from:to])
	e.screen.PutCells(r, cells)
	e.screen.PutChars(Rect{Top: e.v, Bottom: e.v, Left: e.h, Right: e.h}, []rune{' '}, e.attr)
	e.repaint(r)
}

// DeleteChar removes the cell at the cursor, shifting the cells up to the
// window position (h, v) one place back and blanking (h, v).
func (e *Engine) DeleteChar(h, v int) {
	r, from, to, ok := e.charSpan(h, v)
	if !ok {
		return
	}
	cells := e.screen.GetCells(r)
	copy(cells[from:to], cells[from+1:to+1])
	e.screen.PutCells(r, cells)
	th := h + e.win.Left - 1
	tv := v + e.win.Top - 1
	e.screen.PutChars(Rect{Top: tv, Bottom: tv, Left: th, Right: th}, []rune{' '}, e.attr)
	e.repaint(r)
}

func (e *Engine) flowsDown() bool { return e.attr&AttrFlowDown != 0 }

// Display writes s at the cursor along the flow direction, truncating at
// the window edge. The cursor advances but stays inside the window.
func (e *Engine) Display(s string) {
	chars := []rune(s)
	if len(chars) == 0 {
		return
	}
	e.displayRunes(chars)
}

func (e *Engine) displayRunes(chars []rune) {
	if e.flowsDown() {
		n := min(len(chars), e.win.Bottom-e.v+1)
		e.putChars(Rect{Top: e.v, Bottom: e.v + n - 1, Left: e.h, Right: e.h}, chars[:n])
		e.v = min(e.v+n, e.win.Bottom)
	} else {
		n := min(len(chars), e.win.Right-e.h+1)
		e.putChars(Rect{Top: e.v, Bottom: e.v, Left: e.h, Right: e.h + n - 1}, chars[:n])
		e.h = min(e.h+n, e.win.Right)
	}
	if e.cursorState != CursorOff {
		e.sethv()
	}
}

// DisplayRune writes one character and steps right unless at the edge.
func (e *Engine) DisplayRune(r rune) {
	e.putChars(Rect{Top: e.v, Bottom: e.v, Left: e.h, Right: e.h}, []rune{r})
	if e.h < e.win.Right {
		e.h++
	}
	if e.cursorState != CursorOff {
		e.sethv()
	}
}

// DisplayRepeat writes r n times along the flow direction.
func (e *Engine) DisplayRepeat(r rune, n int) {
	if n < 1 {
		return
	}
	limit := e.win.Right - e.h + 1
	if e.flowsDown() {
		limit = e.win.Bottom - e.v + 1
	}
	chars := make([]rune, min(n, limit))
	for i := range chars {
		chars[i] = r
	}
	e.displayRunes(chars)
}

// SetColor replaces the foreground color.
func (e *Engine) SetColor(c Color) { e.attr = e.attr.WithForeground(c) }

// SetBgColor replaces the background color.
func (e *Engine) SetBgColor(c Color) { e.attr = e.attr.WithBackground(c) }

// SetStyle turns a style bit on or off.
func (e *Engine) SetStyle(a Attr, on bool) {
	a &= attrStyleMask
	if on {
		e.attr |= a
	} else {
		e.attr &^= a
	}
}

// AllOff clears every style bit, keeping colors.
func (e *Engine) AllOff() { e.attr &^= attrStyleMask }

// CursorNorm shows the cursor only while keyin waits for input.
func (e *Engine) CursorNorm() {
	e.cursorState = CursorNormal
	e.setCursor(ShapeNone)
}

// CursorOn always shows the cursor.
func (e *Engine) CursorOn() {
	e.cursorState = CursorOn
	e.setCursor(ShapeBlock)
}

// CursorOff never shows the cursor.
func (e *Engine) CursorOff() {
	e.cursorState = CursorOff
	e.setCursor(ShapeNone)
}

// SetCursorShape records the cursor shape; it is applied immediately when
// the cursor is always on.
func (e *Engine) SetCursorShape(s CursorShape) {
	e.cursorShape = s
	if e.cursorState == CursorOn {
		e.setCursor(s)
	}
}
