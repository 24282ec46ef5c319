package terminal

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// KeyMapper converts tcell keyboard events into keyin keys.
type KeyMapper struct {
	// Remap replaces a translated function key with another, e.g. to move
	// Cancel onto Escape.
	Remap map[FuncKey]FuncKey
}

// NewKeyMapper creates a mapper with no remapping.
func NewKeyMapper() *KeyMapper {
	return &KeyMapper{Remap: make(map[FuncKey]FuncKey)}
}

var navKeys = map[tcell.Key]FuncKey{
	tcell.KeyUp:     FuncUp,
	tcell.KeyDown:   FuncDown,
	tcell.KeyLeft:   FuncLeft,
	tcell.KeyRight:  FuncRight,
	tcell.KeyInsert: FuncInsert,
	tcell.KeyDelete: FuncDelete,
	tcell.KeyHome:   FuncHome,
	tcell.KeyEnd:    FuncEnd,
	tcell.KeyPgUp:   FuncPgUp,
	tcell.KeyPgDn:   FuncPgDn,
}

// Translate returns the key for ev, or false when ev has no meaning to the
// line editor.
func (m *KeyMapper) Translate(ev *tcell.EventKey) (Key, bool) {
	k, ok := m.translate(ev.Key(), ev.Rune(), ev.Modifiers())
	if ok && k.IsFunc() {
		if to, found := m.Remap[FuncKey(k.Code)]; found {
			k = Func(to)
		}
	}
	return k, ok
}

func (m *KeyMapper) translate(key tcell.Key, ch rune, mods tcell.ModMask) (Key, bool) {
	switch key {
	case tcell.KeyEnter:
		return Func(FuncEnter), true
	case tcell.KeyEscape:
		return Func(FuncEscape), true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return Func(FuncBackspace), true
	case tcell.KeyTab:
		if mods&tcell.ModShift != 0 {
			return Func(FuncBackTab), true
		}
		return Func(FuncTab), true
	case tcell.KeyBacktab:
		return Func(FuncBackTab), true
	}

	if f, ok := navKeys[key]; ok {
		// Shift, Ctl and Alt variants follow the unmodified block in
		// groups of ten.
		off := FuncKey(0)
		switch {
		case mods&tcell.ModAlt != 0:
			off = 30
		case mods&tcell.ModCtrl != 0:
			off = 20
		case mods&tcell.ModShift != 0:
			off = 10
		}
		return Func(f + off), true
	}

	if key >= tcell.KeyF1 && key <= tcell.KeyF20 {
		n := int(key-tcell.KeyF1) + 1
		switch {
		case mods&tcell.ModAlt != 0:
			return Func(AltF(n)), true
		case mods&tcell.ModCtrl != 0:
			return Func(CtlF(n)), true
		case mods&tcell.ModShift != 0:
			return Func(ShiftF(n)), true
		default:
			return Func(F(n)), true
		}
	}

	if key == tcell.KeyRune {
		if mods&tcell.ModAlt != 0 {
			if f, ok := AltLetter(ch); ok {
				return Func(f), true
			}
		}
		return Char(ch), true
	}

	// Remaining tcell keys below 0x20 are control characters, which covers
	// Ctrl-C (break) and Ctrl-Z (interrupt).
	if key < 0x20 {
		return Char(rune(key)), true
	}
	return NoKey, false
}

// ParseFuncKey resolves a function key by its name, e.g. "F12", "Cancel"
// or "ShiftPgUp", or by decimal wire code. Matching ignores case.
func ParseFuncKey(name string) (FuncKey, error) {
	if k, err := ParseWireKey(name); err == nil {
		if !k.IsFunc() {
			return 0, fmt.Errorf("key code %s is not a function key", name)
		}
		return FuncKey(k.Code), nil
	}
	for _, nk := range FunctionKeys() {
		if strings.EqualFold(nk.Name, name) {
			return FuncKey(nk.Code), nil
		}
	}
	return 0, fmt.Errorf("unknown function key: %s", name)
}
