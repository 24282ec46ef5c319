package terminal

import (
	"strings"
	"testing"
)

func TestVidRestore(t *testing.T) {
	tests := []struct {
		name  string
		image string
		want  string
	}{
		{"plain", "abc", "abc "},
		{"repeat", "`$x", "xxxxxxxx "},
		{"repeat then text", "`!-ab", "-----ab "},
		{"literal escape", "@~a", "~a "},
		{"attribute escape is not painted", "~Oa~?b", "ab "},
		{"box drawing", "~_?A", "─┼ "},
		{"double horizontal", "~_O", "═ "},
		{"repeated glyph", "~_`\"?", "────── "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			e.VidRestore(RestoreScreen, tt.image, false)
			row := []rune(e.Screen().Row(0))
			if got := string(row[:len([]rune(tt.want))]); got != tt.want {
				t.Errorf("row = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVidRestoreAttributes(t *testing.T) {
	e, _ := newTestEngine(t)
	e.VidRestore(RestoreScreen, "~Oa~?b^Bc^12d!Ae", false)

	s := e.Screen()
	if !s.CellAt(0, 0).Attr.Has(AttrReverse) {
		t.Errorf("cell 0 attr = %#x, want reverse", s.CellAt(0, 0).Attr)
	}
	if s.CellAt(1, 0).Attr.Has(AttrReverse) {
		t.Errorf("cell 1 attr = %#x, want normal", s.CellAt(1, 0).Attr)
	}
	if fg := s.CellAt(2, 0).Attr.Foreground(); fg != ColorYellow {
		t.Errorf("cell 2 foreground = %v, want yellow", fg)
	}
	if fg := s.CellAt(3, 0).Attr.Foreground(); fg != Color(12) {
		t.Errorf("cell 3 foreground = %v, want color 12", fg)
	}
	if bg := s.CellAt(4, 0).Attr.Background(); bg != ColorGreen {
		t.Errorf("cell 4 background = %v, want green", bg)
	}
}

func TestVidRestoreKeepsEngineState(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetWindowTB(5, 10)
	e.HV(3, 2)
	e.SetColor(ColorCyan)
	before := e.StateSave()

	e.VidRestore(RestoreScreen, "~O^Ahello", false)

	after := e.StateSave()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("state word %d = %#x, want %#x", i, after[i], before[i])
		}
	}
	if got := e.Screen().Row(0)[:5]; got != "hello" {
		t.Errorf("row 0 = %q", got)
	}
}

func TestVidRestoreWindow(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetWindowTB(3, 4)
	e.SetWindowLR(5, 6)

	e.VidRestore(RestoreWindow, "abcdzz", false)

	s := e.Screen()
	if got := s.Row(2)[3:7]; got != " ab " {
		t.Errorf("row 2 = %q", got)
	}
	if got := s.Row(3)[3:7]; got != " cd " {
		t.Errorf("row 3 = %q", got)
	}
	if got := s.Row(4); strings.TrimSpace(got) != "" {
		t.Errorf("row 4 = %q, want blank", got)
	}
}

func TestVidRestorePCCharset(t *testing.T) {
	e, _ := newTestEngine(t)
	e.VidRestore(RestoreScreen, "Ä", true)
	if c := e.Screen().CellAt(0, 0); c.Char != '─' {
		t.Errorf("cell = %q, want %q", c.Char, '─')
	}
}
