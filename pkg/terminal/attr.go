package terminal

import "strconv"

// Attr is a cell display attribute: style bits plus foreground color in the
// low byte and background color in bits 16-23.
type Attr uint32

const (
	AttrBold      Attr = 0x0100
	AttrBlink     Attr = 0x0200
	AttrUnderline Attr = 0x0400
	AttrReverse   Attr = 0x1000
	// AttrFlowDown makes text display fill downward instead of rightward.
	AttrFlowDown Attr = 0x2000

	attrStyleMask = AttrBold | AttrBlink | AttrUnderline | AttrReverse
	fgMask        = 0x000000FF
	bgMask        = 0x00FF0000
	bgShift       = 16
)

// DefaultAttr is white on black.
const DefaultAttr = Attr(ColorWhite)

// Foreground returns the foreground color.
func (a Attr) Foreground() Color { return Color(a & fgMask) }

// Background returns the background color.
func (a Attr) Background() Color { return Color((a & bgMask) >> bgShift) }

// WithForeground returns a with the foreground replaced.
func (a Attr) WithForeground(c Color) Attr {
	return a&^fgMask | Attr(c)&fgMask
}

// WithBackground returns a with the background replaced.
func (a Attr) WithBackground(c Color) Attr {
	return a&^bgMask | (Attr(c)&0xFF)<<bgShift
}

// Has reports whether all bits in f are set.
func (a Attr) Has(f Attr) bool { return a&f == f }

// Color is a palette index. 0-7 are the basic colors, 8-15 their bright
// variants, and higher values index the 256 color palette.
type Color int

const (
	ColorBlack Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
)

var colorNames = []string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"}

// String returns the color name
func (c Color) String() string {
	if c >= 0 && int(c) < len(colorNames) {
		return colorNames[c]
	}
	if c >= 8 && c < 16 {
		return "bright" + colorNames[c-8]
	}
	return "color" + strconv.Itoa(int(c))
}

// ParseColor maps a basic color name to its code.
func ParseColor(name string) (Color, bool) {
	for i, n := range colorNames {
		if n == name {
			return Color(i), true
		}
	}
	return 0, false
}

// CursorState controls cursor visibility.
type CursorState int

const (
	CursorNormal CursorState = iota
	CursorOn
	CursorOff
)

// CursorShape is the painted cursor form.
type CursorShape int

const (
	ShapeNone CursorShape = iota
	ShapeBlock
	ShapeUnderline
	ShapeHalf
)

// String returns the shape name
func (s CursorShape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeBlock:
		return "block"
	case ShapeUnderline:
		return "underline"
	case ShapeHalf:
		return "half"
	default:
		return "unknown"
	}
}
