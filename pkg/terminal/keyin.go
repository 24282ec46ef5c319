package terminal

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrMaskViolation rejects a character that breaks the numeric mask.
	ErrMaskViolation = errors.New("character violates numeric mask")
	// ErrFieldFull rejects a character typed into a full field.
	ErrFieldFull = errors.New("field is full")
)

// Field describes one keyin request.
type Field struct {
	Width int
	// Numeric selects the numeric mask.
	Numeric bool
	// Decimals is the count of digits allowed right of the separator.
	Decimals int
	// Initial is preloaded into the field in edit mode.
	Initial string
	// VisibleWidth, when positive and narrower than Width, shows the field
	// through a scrolling window of that many columns.
	VisibleWidth int
}

// KeyinResult is the outcome of a keyin.
type KeyinResult struct {
	Text  string
	Count int
	// EndKey is the key that ended the field, NoKey when the field was
	// completed by auto-enter or an action, and TimeoutKey on timeout.
	EndKey Key
}

// Keyin mode configuration. Edit applies to the next keyin only; the rest
// persist until changed or KeyinReset.

func (e *Engine) Edit()            { e.kflags |= flagEdit }
func (e *Engine) EditOn()          { e.kflags |= flagEditOn }
func (e *Engine) EditOff()         { e.kflags &^= flagEditOn }
func (e *Engine) DigitEntry()      { e.kflags |= flagDigitEntry }
func (e *Engine) DigitEntryOff()   { e.kflags &^= flagDigitEntry }
func (e *Engine) AutoEnterOn()     { e.kflags |= flagAutoEnter }
func (e *Engine) AutoEnterOff()    { e.kflags &^= flagAutoEnter }
func (e *Engine) EchoOn()          { e.kflags &^= flagNoEcho }
func (e *Engine) EchoOff()         { e.kflags |= flagNoEcho }
func (e *Engine) EchoSecretOn()    { e.kflags |= flagEchoSecret }
func (e *Engine) EchoSecretOff()   { e.kflags &^= flagEchoSecret }
func (e *Engine) DecimalCommaOn()  { e.kflags |= flagDComma }
func (e *Engine) DecimalCommaOff() { e.kflags &^= flagDComma }

// IsEdit reports whether the next keyin preloads its field.
func (e *Engine) IsEdit() bool { return e.kflags&(flagEdit|flagEditOn) != 0 }

// DecimalComma reports whether numeric fields use ',' as separator.
func (e *Engine) DecimalComma() bool { return e.kflags&flagDComma != 0 }

// SetEchoSecretChar sets the placeholder echoed for secret entry.
func (e *Engine) SetEchoSecretChar(r rune) { e.eschar = r }

func (e *Engine) UpperCase() {
	e.kflags |= flagUpper
}

func (e *Engine) LowerCase() {
	e.kflags &^= flagUpper | flagInvert
	e.kflags |= flagLower
}

func (e *Engine) InvertCase() {
	e.kflags &^= flagUpper | flagLower
	e.kflags |= flagInvert
}

func (e *Engine) NormalCase() {
	e.kflags &^= caseFlags
}

// SetTimeout bounds each wait for a key. Negative values are ignored.
func (e *Engine) SetTimeout(d time.Duration) {
	if d < 0 {
		return
	}
	e.timeout = d
	e.kflags |= flagTimeout
}

// ClearTimeout makes keyin wait indefinitely.
func (e *Engine) ClearTimeout() { e.kflags &^= flagTimeout }

// KeyinReset clears every keyin mode except the case policy.
func (e *Engine) KeyinReset() { e.kflags &= caseFlags }

// AcceptNumeric reports whether r may be entered at pos of a numeric field
// whose current content is field. width and decimals describe the mask;
// sep is the decimal separator.
func AcceptNumeric(field []rune, pos int, r rune, width, decimals int, sep rune) bool {
	pos = min(pos, len(field))
	switch {
	case r == '-':
		if decimals == width-1 {
			return false
		}
		for _, c := range field {
			if c == '-' {
				return false
			}
		}
		for _, c := range field[:pos] {
			if c == sep || (c >= '0' && c <= '9') {
				return false
			}
		}
	case r == sep:
		if decimals == 0 {
			return false
		}
		for _, c := range field {
			if c == sep {
				return false
			}
		}
	case r == ' ':
		for _, c := range field[:pos] {
			if c != ' ' {
				return false
			}
		}
	case r < '0' || r > '9':
		return false
	case decimals > 0:
		i := indexRune(field[:pos], sep)
		if i < 0 {
			if pos == width-decimals-1 {
				return false
			}
		} else if pos-i > decimals {
			return false
		}
	}
	return true
}

func indexRune(s []rune, r rune) int {
	for i, c := range s {
		if c == r {
			return i
		}
	}
	return -1
}

// keyinState is the transient state of one field entry.
type keyinState struct {
	e       *Engine
	f       Field
	buf     []rune
	pos     int
	fill    int
	left    int // first visible field offset
	view    int // visible columns
	startH  int
	editing bool
	sep     rune
}

func (k *keyinState) scrolls() bool { return k.editing || k.f.VisibleWidth > 0 }

// fixView keeps pos inside the visible window.
func (k *keyinState) fixView() {
	cur := min(k.pos, len(k.buf)-1)
	if cur < k.left {
		k.left = cur
	} else if cur >= k.left+k.view {
		k.left = cur - k.view + 1
	}
}

func (k *keyinState) redraw() {
	e := k.e
	end := min(k.left+k.view, len(k.buf))
	chars := k.buf[k.left:end]
	if k.e.kflags&flagEchoSecret != 0 {
		chars = k.masked(chars)
	}
	e.putChars(Rect{Top: e.v, Bottom: e.v, Left: k.startH, Right: k.startH + len(chars) - 1}, chars)
	k.placeCursor()
}

func (k *keyinState) masked(chars []rune) []rune {
	out := make([]rune, len(chars))
	for i, c := range chars {
		if c == ' ' {
			out[i] = ' '
		} else {
			out[i] = k.e.eschar
		}
	}
	return out
}

func (k *keyinState) placeCursor() {
	e := k.e
	if k.scrolls() {
		e.h = min(k.startH+min(k.pos, len(k.buf)-1)-k.left, e.win.Right)
	} else {
		e.h = min(k.startH+k.pos, e.win.Right)
	}
	e.sethv()
}

// full reports whether no more characters can be typed. A field that
// inserts is only full with the cursor past its last column; otherwise
// inserting drops the last character.
func (k *keyinState) full() bool {
	if k.scrolls() {
		return k.pos >= len(k.buf)
	}
	return k.fill >= len(k.buf)
}

// insert puts r at the cursor, shifting the tail right. The character in
// the last column falls off a full field.
func (k *keyinState) insert(r rune) {
	copy(k.buf[k.pos+1:], k.buf[k.pos:len(k.buf)-1])
	k.buf[k.pos] = r
	k.pos++
	k.fill = min(k.fill+1, len(k.buf))
	k.fixView()
	k.redraw()
}

// remove deletes the character at i, shifting the tail left.
func (k *keyinState) remove(i int) {
	copy(k.buf[i:], k.buf[i+1:])
	k.buf[len(k.buf)-1] = ' '
	k.fill--
}

func (e *Engine) foldCase(r rune) rune {
	if e.keyinUpper {
		r = unicode.ToUpper(r)
	} else if e.keyinReverse {
		r = invertRune(r)
	}
	switch {
	case e.kflags&flagUpper != 0:
		r = unicode.ToUpper(r)
	case e.kflags&flagLower != 0:
		r = unicode.ToLower(r)
	case e.kflags&flagInvert != 0:
		r = invertRune(r)
	}
	return r
}

func invertRune(r rune) rune {
	if unicode.IsUpper(r) {
		return unicode.ToLower(r)
	}
	return unicode.ToUpper(r)
}

// absorbed reports whether an end key is used for editing instead of ending
// a character field that is being edited.
func absorbed(k Key, cancel FuncKey) bool {
	if !k.IsFunc() {
		return false
	}
	f := FuncKey(k.Code)
	return f == FuncBackspace || f == cancel || (f >= FuncLeft && f <= FuncEnd)
}

// Keyin runs the blocking line editor for one field at the cursor. It
// returns when an end key is typed, the field auto-enters, the timeout
// expires, an action becomes pending or the engine is aborted.
func (e *Engine) Keyin(f Field) KeyinResult {
	if f.Width < 1 {
		return KeyinResult{}
	}
	k := &keyinState{e: e, f: f, startH: e.h, sep: '.'}
	if e.kflags&flagDComma != 0 {
		k.sep = ','
	}
	if e.kflags&flagEdit != 0 {
		k.editing = true
		e.kflags &^= flagEdit
	} else if e.kflags&flagEditOn != 0 {
		k.editing = true
	}
	if f.Numeric {
		k.f.Decimals = max(0, min(f.Decimals, f.Width-1))
	}
	room := e.win.Right - e.h + 1
	width := f.Width
	if f.VisibleWidth <= 0 || f.VisibleWidth >= width {
		k.f.VisibleWidth = 0
		if k.editing {
			width = min(width, room)
		}
		k.view = width
	} else {
		k.view = min(f.VisibleWidth, room)
	}
	k.buf = make([]rune, width)
	for i := range k.buf {
		k.buf[i] = ' '
	}
	if k.scrolls() {
		if k.editing {
			n := copy(k.buf, []rune(f.Initial))
			k.fill = n
			if f.Numeric {
				k.fill = width
			}
			k.pos = min(k.fill, width-1)
		}
		k.fixView()
		k.redraw()
	}
	if e.cursorState != CursorOff {
		e.sethv()
		e.setCursor(e.cursorShape)
	}
	e.lastEndKey = NoKey
	endKey := k.loop()
	e.lastEndKey = endKey

	count := k.fill
	if f.Numeric && k.scrolls() {
		count = width
	}
	text := []rune(string(k.buf[:count]))
	if f.Numeric && e.kflags&flagDComma != 0 {
		for i, c := range text {
			if c == ',' {
				text[i] = '.'
			}
		}
	}
	if e.cursorState != CursorOn {
		e.setCursor(ShapeNone)
	}
	return KeyinResult{Text: string(text), Count: count, EndKey: endKey}
}

func (k *keyinState) loop() Key {
	e := k.e
	for {
		key := e.getChar()
		if key.IsNone() || key.IsTimeout() {
			return key
		}
		if key.IsChar() {
			if e.kflags&flagDigitEntry != 0 {
				if key.Code < '0' || key.Code > '9' {
					e.Beep()
					continue
				}
			} else {
				key.Code = e.foldCase(key.Code)
			}
		}
		if e.IsEndKey(key) && (k.f.Numeric || !k.scrolls() || !absorbed(key, e.cancelKey)) {
			return key
		}
		if key.IsChar() {
			if key.Code < ' ' {
				continue
			}
			if err := k.typeRune(key.Code); err != nil {
				e.log.Debug("keyin rejected", "key", key, "error", err)
				e.Beep()
				continue
			}
			if e.kflags&flagAutoEnter != 0 && k.full() {
				return NoKey
			}
			continue
		}
		k.control(FuncKey(key.Code))
	}
}

func (k *keyinState) typeRune(r rune) error {
	if k.full() {
		return ErrFieldFull
	}
	if k.f.Numeric && !AcceptNumeric(k.buf[:k.fill], k.pos, r, len(k.buf), k.f.Decimals, k.sep) {
		return ErrMaskViolation
	}
	if k.scrolls() {
		k.insert(r)
		return nil
	}
	e := k.e
	k.buf[k.pos] = r
	if e.kflags&flagNoEcho == 0 {
		echo := r
		if e.kflags&flagEchoSecret != 0 {
			echo = e.eschar
		}
		col := min(k.startH+k.pos, e.win.Right)
		e.putChars(Rect{Top: e.v, Bottom: e.v, Left: col, Right: col}, []rune{echo})
	}
	k.pos++
	k.fill++
	if e.kflags&flagNoEcho == 0 {
		k.placeCursor()
	}
	return nil
}

func (k *keyinState) control(f FuncKey) {
	e := k.e
	if f == e.cancelKey {
		for i := range k.buf {
			k.buf[i] = ' '
		}
		blank := k.fill
		k.pos, k.fill, k.left = 0, 0, 0
		if k.scrolls() {
			k.redraw()
		} else if e.kflags&flagNoEcho == 0 {
			n := min(blank, e.win.Right-k.startH+1)
			if n > 0 {
				e.putChars(Rect{Top: e.v, Bottom: e.v, Left: k.startH, Right: k.startH + n - 1}, []rune(strings.Repeat(" ", n)))
			}
			k.placeCursor()
		}
		return
	}
	if !k.scrolls() {
		if f == FuncBackspace && k.fill > 0 {
			k.fill--
			k.pos--
			k.buf[k.pos] = ' '
			if e.kflags&flagNoEcho == 0 {
				col := min(k.startH+k.pos, e.win.Right)
				e.putChars(Rect{Top: e.v, Bottom: e.v, Left: col, Right: col}, []rune{' '})
				k.placeCursor()
			}
		}
		return
	}
	switch f {
	case FuncBackspace:
		if k.pos == 0 {
			return
		}
		k.pos--
		k.remove(k.pos)
	case FuncDelete:
		if k.fill <= k.pos {
			return
		}
		k.remove(k.pos)
	case FuncHome:
		k.pos = 0
	case FuncEnd:
		k.pos = min(k.fill, len(k.buf)-1)
	case FuncLeft:
		if k.pos == 0 {
			return
		}
		k.pos--
	case FuncRight:
		if k.pos >= k.fill || k.pos >= len(k.buf)-1 {
			return
		}
		k.pos++
	default:
		return
	}
	k.fixView()
	k.redraw()
}
