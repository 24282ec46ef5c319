package terminal

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestKeyMapperTranslate(t *testing.T) {
	tests := []struct {
		name string
		key  tcell.Key
		ch   rune
		mods tcell.ModMask
		want Key
	}{
		{"enter", tcell.KeyEnter, 0, tcell.ModNone, Func(FuncEnter)},
		{"escape", tcell.KeyEscape, 0, tcell.ModNone, Func(FuncEscape)},
		{"backspace", tcell.KeyBackspace2, 0, tcell.ModNone, Func(FuncBackspace)},
		{"tab", tcell.KeyTab, 0, tcell.ModNone, Func(FuncTab)},
		{"backtab", tcell.KeyBacktab, 0, tcell.ModShift, Func(FuncBackTab)},
		{"up", tcell.KeyUp, 0, tcell.ModNone, Func(FuncUp)},
		{"shift up", tcell.KeyUp, 0, tcell.ModShift, Func(FuncShiftUp)},
		{"ctrl page down", tcell.KeyPgDn, 0, tcell.ModCtrl, Func(FuncCtlPgDn)},
		{"alt home", tcell.KeyHome, 0, tcell.ModAlt, Func(FuncAltHome)},
		{"f5", tcell.KeyF5, 0, tcell.ModNone, Func(F(5))},
		{"shift f3", tcell.KeyF3, 0, tcell.ModShift, Func(ShiftF(3))},
		{"ctrl f10", tcell.KeyF10, 0, tcell.ModCtrl, Func(CtlF(10))},
		{"alt f2", tcell.KeyF2, 0, tcell.ModAlt, Func(AltF(2))},
		{"rune", tcell.KeyRune, 'a', tcell.ModNone, Char('a')},
		{"alt letter", tcell.KeyRune, 'x', tcell.ModAlt, Func(FuncAltA + 23)},
		{"alt digit", tcell.KeyRune, '1', tcell.ModAlt, Char('1')},
		{"ctrl c", tcell.KeyCtrlC, 0, tcell.ModCtrl, Char(3)},
		{"ctrl z", tcell.KeyCtrlZ, 0, tcell.ModCtrl, Char(26)},
	}

	m := NewKeyMapper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Translate(tcell.NewEventKey(tt.key, tt.ch, tt.mods))
			if !ok {
				t.Fatal("Translate() = false")
			}
			if got != tt.want {
				t.Errorf("Translate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyMapperIgnoresUnmapped(t *testing.T) {
	m := NewKeyMapper()
	if k, ok := m.Translate(tcell.NewEventKey(tcell.KeyF21, 0, tcell.ModNone)); ok {
		t.Errorf("Translate(F21) = %v", k)
	}
}

func TestKeyMapperRemap(t *testing.T) {
	m := NewKeyMapper()
	m.Remap[FuncEscape] = FuncCancel

	got, _ := m.Translate(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	if got != Func(FuncCancel) {
		t.Errorf("Translate(Escape) = %v, want Cancel", got)
	}
	got, _ = m.Translate(tcell.NewEventKey(tcell.KeyRune, 'e', tcell.ModNone))
	if got != Char('e') {
		t.Errorf("Translate('e') = %v", got)
	}
}

func TestParseFuncKey(t *testing.T) {
	tests := []struct {
		in   string
		want FuncKey
	}{
		{"F12", F(12)},
		{"cancel", FuncCancel},
		{"ShiftPgUp", FuncShiftPgUp},
		{"altq", FuncAltA + 16},
		{"301", F(1)},
		{"504", FuncInterrupt},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFuncKey(tt.in)
			if err != nil {
				t.Fatalf("ParseFuncKey() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseFuncKey() = %v, want %v", got, tt.want)
			}
		})
	}

	for _, bad := range []string{"65", "F99", "nope"} {
		if _, err := ParseFuncKey(bad); err == nil {
			t.Errorf("ParseFuncKey(%q) succeeded", bad)
		}
	}
}
