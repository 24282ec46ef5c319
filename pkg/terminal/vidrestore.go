package terminal

// RestoreScope selects the area a saved screen image is painted into.
type RestoreScope int

const (
	// RestoreScreen resets the window and paints the whole grid.
	RestoreScreen RestoreScope = iota + 1
	// RestoreWindow paints the current window.
	RestoreWindow
	// RestoreChars paints the current window keeping the display
	// attribute and cursor mode.
	RestoreChars
)

// Attribute bits of the '~' escape in a saved screen image.
const (
	vidUnderline = 0x01
	vidBlink     = 0x02
	vidBold      = 0x04
	vidReverse   = 0x10
	vidGraphic   = 0x20
)

func isVidControl(r rune) bool {
	return r == '~' || r == '^' || r == '!' || r == '`' || r == '@'
}

// VidRestore paints a compressed screen image produced by the server. The
// image is a stream of characters filling the area row by row, with these
// escapes:
//
//	~X   set attributes to X-'?' (bits 0x01 underline, 0x02 blink,
//	     0x04 bold, 0x10 reverse, 0x20 box-drawing mode)
//	^X   foreground color X-'?', or ^ followed by decimal digits
//	!X   background color, same forms as ^
//	`X   repeat the next character X-' '+4 times
//	@X   X is a literal character
//
// In box-drawing mode each character X selects glyph (X-'?')&^0x30 and
// bits 0x10 and 0x20 toggle double horizontal and vertical strokes. The
// engine state is the same before and after the call. When pcCharset is
// set, characters above 0x7F are translated from the PC code page.
func (e *Engine) VidRestore(scope RestoreScope, image string, pcCharset bool) {
	saved := e.StateSave()
	defer e.StateRestore(saved)
	e.dbl = DoubleNone

	buf := []rune(image)
	if pcCharset {
		buf = []rune(FromPCCharset(image))
	}
	if scope == RestoreScreen {
		e.ResetWindow()
	}
	cols, rows := e.win.Width(), e.win.Height()
	if scope != RestoreChars {
		e.AllOff()
		e.CursorOff()
	}

	var (
		attrib, dblFlag int
		pos, ptr, n     int
		repeat          int
		rpt             rune
	)
	remaining := func() int { return len(buf) - pos }
	for row := 0; row < rows && (remaining() > 0 || repeat > 0); row++ {
		e.H(1)
		e.V(row + 1)
		for col := 0; col < cols; {
			if repeat == 0 {
				if n > 0 && (col+n == cols || remaining() == 0 || isVidControl(buf[pos])) {
					e.Display(string(buf[ptr : ptr+n]))
					col += n
					n = 0
					continue
				}
				if remaining() >= 2 {
					switch buf[pos] {
					case '~':
						next := int(buf[pos+1] - '?')
						e.applyVidAttr(attrib^next, next)
						attrib = next
						pos += 2
						continue
					case '^', '!':
						c, used := parseVidColor(buf[pos+1:])
						if buf[pos] == '^' {
							e.SetColor(c)
						} else {
							e.SetBgColor(c)
						}
						pos += 1 + used
						continue
					case '`':
						repeat = int(buf[pos+1]-' ') + 4
						pos += 2
					}
				}
				if remaining() >= 1 && buf[pos] == '@' {
					pos++
				}
				if remaining() <= 0 {
					repeat = 0
					break
				}
				if repeat == 0 && attrib&vidGraphic == 0 {
					if n == 0 {
						ptr = pos
					}
					n++
					pos++
					continue
				}
			}
			if attrib&vidGraphic != 0 {
				chr := int(buf[pos] - '?')
				if chr < 0 {
					rpt = '?'
				} else {
					bits := chr & 0x30
					changed := dblFlag ^ bits
					if changed&0x10 != 0 {
						if bits&0x10 != 0 {
							e.dbl |= DoubleHorizontal
						} else {
							e.dbl &= DoubleVertical
						}
					}
					if changed&0x20 != 0 {
						if bits&0x20 != 0 {
							e.dbl |= DoubleVertical
						} else {
							e.dbl &= DoubleHorizontal
						}
					}
					dblFlag = bits
					rpt = GlyphRune(chr&^0x30, e.dbl)
				}
			} else {
				rpt = buf[pos]
			}
			step := 1
			if repeat > 0 {
				step = min(repeat, cols-col)
				e.DisplayRepeat(rpt, step)
				repeat -= step
			} else {
				e.DisplayRune(rpt)
			}
			if repeat == 0 {
				pos++
			}
			col += step
		}
	}
}

func (e *Engine) applyVidAttr(changed, next int) {
	bits := []struct {
		vid  int
		attr Attr
	}{
		{vidReverse, AttrReverse},
		{vidBold, AttrBold},
		{vidUnderline, AttrUnderline},
		{vidBlink, AttrBlink},
	}
	for _, b := range bits {
		if changed&b.vid != 0 {
			e.SetStyle(b.attr, next&b.vid != 0)
		}
	}
}

// parseVidColor reads a color operand and returns it with the number of
// runes consumed.
func parseVidColor(s []rune) (Color, int) {
	if len(s) == 0 {
		return 0, 0
	}
	if s[0] < '0' || s[0] > '9' {
		return Color(s[0] - '?'), 1
	}
	c, i := 0, 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		c = c*10 + int(s[i]-'0')
		i++
	}
	return Color(c), i
}
