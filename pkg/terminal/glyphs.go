package terminal

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Glyph is a box drawing or arrow character.
type Glyph int

const (
	GlyphHLine Glyph = iota
	GlyphVLine
	GlyphCross
	GlyphUpperLeft
	GlyphUpperRight
	GlyphLowerLeft
	GlyphLowerRight
	GlyphRightTee
	GlyphDownTee
	GlyphLeftTee
	GlyphUpTee
	GlyphUpArrow
	GlyphRightArrow
	GlyphDownArrow
	GlyphLeftArrow

	glyphCount
)

// Double selects a glyph variant: bit 0 doubles horizontal strokes and bit 1
// doubles vertical strokes.
type Double uint8

const (
	DoubleNone       Double = 0
	DoubleHorizontal Double = 1
	DoubleVertical   Double = 2
	DoubleBoth       Double = 3
)

// glyphRunes holds four variants per glyph, indexed by glyph*4 + Double.
var glyphRunes = [glyphCount * 4]rune{
	'─', '═', '─', '═', // hln
	'│', '│', '║', '║', // vln
	'┼', '╪', '╫', '╬', // crs
	'┌', '╒', '╓', '╔', // ulc
	'┐', '╕', '╖', '╗', // urc
	'└', '╘', '╙', '╚', // llc
	'┘', '╛', '╜', '╝', // lrc
	'├', '╞', '╟', '╠', // rtk
	'┬', '╤', '╥', '╦', // dtk
	'┤', '╡', '╢', '╣', // ltk
	'┴', '╧', '╨', '╩', // utk
	'↑', '↑', '⇑', '⇑', // upa
	'→', '⇒', '→', '⇒', // rta
	'↓', '↓', '⇓', '⇓', // dna
	'←', '⇐', '←', '⇐', // lfa
}

var glyphNames = map[string]Glyph{
	"hln": GlyphHLine,
	"vln": GlyphVLine,
	"crs": GlyphCross,
	"ulc": GlyphUpperLeft,
	"urc": GlyphUpperRight,
	"llc": GlyphLowerLeft,
	"lrc": GlyphLowerRight,
	"rtk": GlyphRightTee,
	"dtk": GlyphDownTee,
	"ltk": GlyphLeftTee,
	"utk": GlyphUpTee,
	"upa": GlyphUpArrow,
	"rta": GlyphRightArrow,
	"dna": GlyphDownArrow,
	"lfa": GlyphLeftArrow,
}

// GlyphByName looks up a glyph by its command name.
func GlyphByName(name string) (Glyph, bool) {
	g, ok := glyphNames[name]
	return g, ok
}

// Rune returns the character for g in the given variant.
func (g Glyph) Rune(d Double) rune {
	return GlyphRune(int(g), d)
}

// GlyphRune returns the character for a numeric glyph index, or '?' when
// the index is outside the table.
func GlyphRune(index int, d Double) rune {
	i := index*4 + int(d&DoubleBoth)
	if index < 0 || i >= len(glyphRunes) {
		return '?'
	}
	return glyphRunes[i]
}

// FromPCCharset maps characters in 0x80-0xFF from the PC code page to
// Unicode. Other characters are unchanged.
func FromPCCharset(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0x80 && r <= 0xFF {
			return charmap.CodePage437.DecodeByte(byte(r))
		}
		return r
	}, s)
}

// ToPCCharset maps non-ASCII characters to the PC code page, using '?' when
// there is no mapping.
func ToPCCharset(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 {
			return r
		}
		if b, ok := charmap.CodePage437.EncodeRune(r); ok {
			return rune(b)
		}
		return '?'
	}, s)
}
