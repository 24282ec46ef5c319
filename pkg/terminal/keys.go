package terminal

import (
	"fmt"
	"strconv"
	"unicode"
)

// KeyKind tags the variant carried by a Key.
type KeyKind uint8

const (
	KindNone KeyKind = iota
	KindChar
	KindFunc
	KindTimeout
)

// FuncKey identifies a function key by its wire code. Character keys use
// their code point on the wire; function keys start at 256.
type FuncKey uint16

const (
	FuncEnter FuncKey = 256 + iota
	FuncEscape
	FuncBackspace
	FuncTab
	FuncBackTab
	FuncUp
	FuncDown
	FuncLeft
	FuncRight
	FuncInsert
	FuncDelete
	FuncHome
	FuncEnd
	FuncPgUp
	FuncPgDn
	FuncShiftUp
	FuncShiftDown
	FuncShiftLeft
	FuncShiftRight
	FuncShiftInsert
	FuncShiftDelete
	FuncShiftHome
	FuncShiftEnd
	FuncShiftPgUp
	FuncShiftPgDn
	FuncCtlUp
	FuncCtlDown
	FuncCtlLeft
	FuncCtlRight
	FuncCtlInsert
	FuncCtlDelete
	FuncCtlHome
	FuncCtlEnd
	FuncCtlPgUp
	FuncCtlPgDn
	FuncAltUp
	FuncAltDown
	FuncAltLeft
	FuncAltRight
	FuncAltInsert
	FuncAltDelete
	FuncAltHome
	FuncAltEnd
	FuncAltPgUp
	FuncAltPgDn
	FuncF1
)

const (
	FuncShiftF1 FuncKey = FuncF1 + 20
	FuncCtlF1   FuncKey = FuncShiftF1 + 20
	FuncAltF1   FuncKey = FuncCtlF1 + 20
	FuncAltA    FuncKey = FuncAltF1 + 20

	FuncInterrupt FuncKey = 0x1F8
	FuncCancel    FuncKey = 0x1F9

	// wireInterrupt is the code servers use for the interrupt key. It is
	// one above FuncInterrupt and only recognized inbound.
	wireInterrupt = 505
)

// F returns function key Fn for n in 1..20.
func F(n int) FuncKey { return FuncF1 + FuncKey(n-1) }

// ShiftF returns shift-Fn.
func ShiftF(n int) FuncKey { return FuncShiftF1 + FuncKey(n-1) }

// CtlF returns control-Fn.
func CtlF(n int) FuncKey { return FuncCtlF1 + FuncKey(n-1) }

// AltF returns alt-Fn.
func AltF(n int) FuncKey { return FuncAltF1 + FuncKey(n-1) }

// AltLetter returns alt-<letter> for a..z (either case).
func AltLetter(c rune) (FuncKey, bool) {
	c = unicode.ToUpper(c)
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return FuncAltA + FuncKey(c-'A'), true
}

// Key is a keystroke or one of the pseudo keys returned by a blocking read.
type Key struct {
	Kind KeyKind
	Code rune
}

var (
	// NoKey is returned when a read ends because an action is pending, and
	// as the end key of a field completed by filling it.
	NoKey = Key{}
	// TimeoutKey ends a read whose timeout elapsed.
	TimeoutKey = Key{Kind: KindTimeout}
)

// Char returns a character key.
func Char(r rune) Key { return Key{Kind: KindChar, Code: r} }

// Func returns a function key.
func Func(f FuncKey) Key { return Key{Kind: KindFunc, Code: rune(f)} }

func (k Key) IsChar() bool    { return k.Kind == KindChar }
func (k Key) IsFunc() bool    { return k.Kind == KindFunc }
func (k Key) IsTimeout() bool { return k.Kind == KindTimeout }
func (k Key) IsNone() bool    { return k.Kind == KindNone }

// Is reports whether k is the function key f.
func (k Key) Is(f FuncKey) bool {
	return k.Kind == KindFunc && FuncKey(k.Code) == f
}

// Upper folds character keys to upper case for trap matching.
func (k Key) Upper() Key {
	if k.Kind == KindChar {
		k.Code = unicode.ToUpper(k.Code)
	}
	return k
}

// WireCode returns the numeric code sent to the server.
func (k Key) WireCode() int {
	switch k.Kind {
	case KindChar, KindFunc:
		return int(k.Code)
	default:
		return 0
	}
}

// WireString returns WireCode in decimal.
func (k Key) WireString() string {
	return strconv.Itoa(k.WireCode())
}

// KeyFromWire converts a server key code. 505 always denotes the interrupt
// key.
func KeyFromWire(code int) Key {
	switch {
	case code == wireInterrupt:
		return Func(FuncInterrupt)
	case code >= 256:
		return Func(FuncKey(code))
	case code >= 0:
		return Char(rune(code))
	default:
		return NoKey
	}
}

// ParseWireKey parses a decimal server key code.
func ParseWireKey(s string) (Key, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return NoKey, fmt.Errorf("invalid key code %q: %w", s, err)
	}
	if n < 0 || n > 0xFFF {
		return NoKey, fmt.Errorf("key code %d out of range", n)
	}
	return KeyFromWire(n), nil
}

// String returns the key name.
func (k Key) String() string {
	switch k.Kind {
	case KindNone:
		return "none"
	case KindTimeout:
		return "timeout"
	case KindChar:
		if k.Code < 0x20 {
			return fmt.Sprintf("ctrl-%c", k.Code+'@')
		}
		return strconv.QuoteRune(k.Code)
	}
	return FuncKey(k.Code).String()
}

var funcNames = []string{
	"Enter", "Escape", "Backspace", "Tab", "BackTab",
	"Up", "Down", "Left", "Right", "Insert", "Delete", "Home", "End", "PgUp", "PgDn",
}

// String returns the function key name.
func (f FuncKey) String() string {
	switch {
	case f == FuncInterrupt:
		return "Interrupt"
	case f == FuncCancel:
		return "Cancel"
	case f >= FuncEnter && f <= FuncPgDn:
		return funcNames[f-FuncEnter]
	case f >= FuncShiftUp && f < FuncF1:
		off := int(f - FuncShiftUp)
		mods := []string{"Shift", "Ctl", "Alt"}
		return mods[off/10] + funcNames[5+off%10]
	case f >= FuncF1 && f < FuncShiftF1:
		return fmt.Sprintf("F%d", f-FuncF1+1)
	case f >= FuncShiftF1 && f < FuncCtlF1:
		return fmt.Sprintf("ShiftF%d", f-FuncShiftF1+1)
	case f >= FuncCtlF1 && f < FuncAltF1:
		return fmt.Sprintf("CtlF%d", f-FuncCtlF1+1)
	case f >= FuncAltF1 && f < FuncAltA:
		return fmt.Sprintf("AltF%d", f-FuncAltF1+1)
	case f >= FuncAltA && f < FuncAltA+26:
		return fmt.Sprintf("Alt%c", 'A'+rune(f-FuncAltA))
	}
	return fmt.Sprintf("Func(%d)", int(f))
}

// NamedKey pairs a function key name with its wire code.
type NamedKey struct {
	Name string `json:"name"`
	Code int    `json:"code"`
}

// FunctionKeys lists every named function key in wire code order.
func FunctionKeys() []NamedKey {
	var out []NamedKey
	for f := FuncEnter; f < FuncAltA+26; f++ {
		out = append(out, NamedKey{Name: f.String(), Code: int(f)})
	}
	out = append(out,
		NamedKey{Name: FuncInterrupt.String(), Code: int(FuncInterrupt)},
		NamedKey{Name: FuncCancel.String(), Code: int(FuncCancel)},
	)
	return out
}
