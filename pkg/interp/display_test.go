package interp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"smartclient/pkg/terminal"
)

func row(in *Interpreter, y int) string {
	return strings.TrimRight(in.Engine().Screen().Row(y), " \x00")
}

func TestDisplayCommands(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantRow int
		want    string
	}{
		{"text", `<d>Hello</d>`, 0, "Hello"},
		{"position", `<d><p h="2" v="1"/>X</d>`, 1, "  X"},
		{"column and row text", `<d><h>3</h><v>2</v>Y</d>`, 2, "   Y"},
		{"relative moves", `<d><p h="5" v="5"/><ha>-2</ha><va>-4</va>Z</d>`, 1, "   Z"},
		{"carriage return", `<d>abc<cr/>X</d>`, 0, "Xbc"},
		{"newline", `<d>ab<nl/>c</d>`, 1, "c"},
		{"line feed keeps column", `<d>ab<lf/>c</d>`, 1, "  c"},
		{"glyph", `<d><ulc/><hln/><urc/></d>`, 0, "┌─┐"},
		{"double glyph", `<d><dblon/><hln/><dbloff/><hln/></d>`, 0, "═─"},
		{"repeat glyph index", `<d><rptchar n="3"><c>0</c></rptchar></d>`, 0, "───"},
		{"repeat named glyph", `<d><rptchar n="2"><vln/></rptchar></d>`, 0, "││"},
		{"repeat text", `<d><rptchar n="4">*x</rptchar></d>`, 0, "****"},
		{"repeat down", `<d><rptdown n="3">#</rptdown></d>`, 2, "#"},
		{"erase line", `<d>abc<hu/><el/></d>`, 0, ""},
		{"insert char", `<d>abc<hu/><inschr h="3" v="0"/></d>`, 0, " abc"},
		{"delete char", `<d>abc<hu/><delchr h="3" v="0"/></d>`, 0, "bc"},
		{"insert char before cursor ignored", `<d>abc<inschr h="0" v="0"/></d>`, 0, "abc"},
		{"pc charset off", `<d>&#196;</d>`, 0, "Ä"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, sess := newTestInterpreter(t, Options{})
			handle(t, in, tt.doc)
			assert.Equal(t, tt.want, row(in, tt.wantRow))
			assert.Empty(t, sess.sent)
		})
	}
}

func TestDisplayPCCharset(t *testing.T) {
	in, _ := newTestInterpreter(t, Options{PCCharset: true})
	handle(t, in, `<d>&#196;&#179;</d>`)
	assert.Equal(t, "─│", row(in, 0))
}

func TestDisplayScrollRight(t *testing.T) {
	in, _ := newTestInterpreter(t, Options{})
	handle(t, in, `<d><setsw t="0" b="2" l="0" r="3"/>abcd<nl/>efgh<scrright>xy</scrright>z</d>`)
	// the window rolls right and the new first column is filled downward
	assert.Equal(t, "xabc", row(in, 0))
	assert.Equal(t, "yefg", row(in, 1))
	assert.False(t, in.Engine().Attr().Has(terminal.AttrFlowDown))
}

func TestDisplayAttributes(t *testing.T) {
	in, _ := newTestInterpreter(t, Options{})
	handle(t, in, `<d><revon/><boldon/><red/><bgblue/></d>`)
	a := in.Engine().Attr()
	assert.True(t, a.Has(terminal.AttrReverse))
	assert.True(t, a.Has(terminal.AttrBold))
	assert.Equal(t, terminal.ColorRed, a.Foreground())
	assert.Equal(t, terminal.ColorBlue, a.Background())

	handle(t, in, `<d><alloff/><color v="12"/><bgcolor v="3"/></d>`)
	a = in.Engine().Attr()
	assert.False(t, a.Has(terminal.AttrReverse))
	assert.Equal(t, terminal.Color(12), a.Foreground())
	assert.Equal(t, terminal.ColorYellow, a.Background())
}

func TestDisplayDoubleFlags(t *testing.T) {
	tests := []struct {
		doc  string
		want terminal.Double
	}{
		{`<d><hdblon/></d>`, terminal.DoubleHorizontal},
		{`<d><vdblon/></d>`, terminal.DoubleVertical},
		{`<d><dblon/><hdbloff/></d>`, terminal.DoubleVertical},
		{`<d><dblon/><vdbloff/></d>`, terminal.DoubleHorizontal},
		{`<d><dblon/><dbloff/></d>`, terminal.DoubleNone},
	}
	for _, tt := range tests {
		in, _ := newTestInterpreter(t, Options{})
		handle(t, in, tt.doc)
		if got := in.Engine().Double(); got != tt.want {
			t.Errorf("%s: Double() = %d, want %d", tt.doc, got, tt.want)
		}
	}
}

func TestDisplayCursorModes(t *testing.T) {
	in, _ := newTestInterpreter(t, Options{})
	handle(t, in, `<d><cursor>on</cursor></d>`)
	assert.Equal(t, terminal.CursorOn, in.Engine().CursorState())
	handle(t, in, `<d><cursor>off</cursor></d>`)
	assert.Equal(t, terminal.CursorOff, in.Engine().CursorState())
	handle(t, in, `<d><cursor>norm</cursor></d>`)
	assert.Equal(t, terminal.CursorNormal, in.Engine().CursorState())
}

func TestDisplayNewlineWithoutAutoRoll(t *testing.T) {
	in, _ := newTestInterpreter(t, Options{Height: 3})
	handle(t, in, `<d><autorolloff/>a<nl/>b<nl/>c<nl/>d</d>`)
	assert.Equal(t, "a", row(in, 0))
	assert.Equal(t, "b", row(in, 1))
	assert.Equal(t, "d", row(in, 2))

	in, _ = newTestInterpreter(t, Options{Height: 3})
	handle(t, in, `<d>a<nl/>b<nl/>c<nl/>d</d>`)
	assert.Equal(t, "b", row(in, 0))
	assert.Equal(t, "c", row(in, 1))
	assert.Equal(t, "d", row(in, 2))
}

func TestDisplayLoneBeep(t *testing.T) {
	beeps := 0
	in, _ := newTestInterpreter(t, Options{Beep: func() { beeps++ }})
	handle(t, in, `<d><b/></d>`)
	assert.Equal(t, 1, beeps)
	assert.False(t, in.HasEngine())

	handle(t, in, `<d>x<b/></d>`)
	assert.True(t, in.HasEngine())
	assert.Equal(t, 1, beeps, "beeps go to the engine once it exists")
}

func TestDisplayWait(t *testing.T) {
	var slept []time.Duration
	in, _ := newTestInterpreter(t, Options{Sleep: func(d time.Duration) { slept = append(slept, d) }})
	handle(t, in, `<d><wait n="2"/><wait n="0"/></d>`)
	assert.Equal(t, []time.Duration{2 * time.Second}, slept)
}
