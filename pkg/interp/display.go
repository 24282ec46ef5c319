package interp

import (
	"strconv"
	"strings"
	"time"

	"smartclient/pkg/markup"
	"smartclient/pkg/terminal"
)

var styleBits = map[string]struct {
	attr terminal.Attr
	on   bool
}{
	"revon":    {terminal.AttrReverse, true},
	"revoff":   {terminal.AttrReverse, false},
	"boldon":   {terminal.AttrBold, true},
	"boldoff":  {terminal.AttrBold, false},
	"blinkon":  {terminal.AttrBlink, true},
	"blinkoff": {terminal.AttrBlink, false},
	"ulon":     {terminal.AttrUnderline, true},
	"uloff":    {terminal.AttrUnderline, false},
}

var cursorShapes = map[string]terminal.CursorShape{
	"uline": terminal.ShapeUnderline,
	"half":  terminal.ShapeHalf,
	"block": terminal.ShapeBlock,
}

// handleDisplay runs a d command. A lone beep does not create the engine.
func (in *Interpreter) handleDisplay(cmd *markup.Element) error {
	if !cmd.HasChildren() {
		return nil
	}
	if in.engine == nil && len(cmd.Children) == 1 && cmd.Children[0].Elem != nil && cmd.Children[0].Elem.Name == "b" {
		in.opts.Beep()
		return nil
	}
	in.displayChildren(in.Engine(), cmd)
	return nil
}

func (in *Interpreter) displayChildren(e *terminal.Engine, cmd *markup.Element) {
	for _, n := range cmd.Children {
		if n.IsText() {
			e.Display(in.toScreen(n.Text))
			continue
		}
		in.displayControl(e, n.Elem)
	}
}

// textInt parses the text content of c.
func textInt(c *markup.Element) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Text()))
	return n, err == nil
}

func attrInt(c *markup.Element, name string) (int, bool) {
	v, ok := c.Attr(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	return n, err == nil
}

// displayControl applies one display element. Coordinates on the wire are
// 0-based.
func (in *Interpreter) displayControl(e *terminal.Engine, c *markup.Element) {
	if s, ok := styleBits[c.Name]; ok {
		e.SetStyle(s.attr, s.on)
		return
	}
	if g, ok := terminal.GlyphByName(c.Name); ok {
		e.DisplayRune(g.Rune(e.Double()))
		return
	}
	if col, ok := terminal.ParseColor(c.Name); ok {
		e.SetColor(col)
		return
	}
	if name, ok := strings.CutPrefix(c.Name, "bg"); ok {
		if col, ok := terminal.ParseColor(name); ok {
			e.SetBgColor(col)
			return
		}
	}

	switch c.Name {
	case "p":
		h, hok := attrInt(c, "h")
		v, vok := attrInt(c, "v")
		if hok {
			e.H(h + 1)
		}
		if vok {
			e.V(v + 1)
		}
	case "h":
		if n, ok := textInt(c); ok {
			e.H(n + 1)
		}
	case "v":
		if n, ok := textInt(c); ok {
			e.V(n + 1)
		}
	case "ha":
		if n, ok := textInt(c); ok {
			e.HA(n)
		}
	case "va":
		if n, ok := textInt(c); ok {
			e.VA(n)
		}
	case "nl":
		if e.AutoRoll() {
			e.NL(1)
		} else {
			e.H(1)
			e.VA(1)
		}
	case "cr":
		e.H(1)
	case "lf":
		e.VA(1)
	case "hu":
		e.HomeUp()
	case "hd":
		e.HomeDown()
	case "eu":
		e.EndUp()
	case "ed":
		e.EndDown()
	case "es":
		e.Erase()
	case "el":
		e.EraseLine()
	case "ef":
		e.EraseFrom()
	case "ru":
		e.RollUp()
	case "rd":
		e.RollDown()
	case "scrright":
		e.RollRight()
		e.HomeUp()
		in.flowDown(e, c)
	case "scrleft":
		e.RollLeft()
		e.EndUp()
		in.flowDown(e, c)
	case "opnlin":
		e.OpenLine()
	case "clslin":
		e.CloseLine()
	case "inslin":
		e.InsertLine()
	case "dellin":
		e.DeleteLine()
	case "inschr", "delchr":
		h, hok := attrInt(c, "h")
		v, vok := attrInt(c, "v")
		if !hok || !vok {
			return
		}
		if c.Name == "inschr" {
			e.InsertChar(h+1, v+1)
		} else {
			e.DeleteChar(h+1, v+1)
		}
	case "rptchar":
		in.repeat(e, c)
	case "rptdown":
		down := e.Attr().Has(terminal.AttrFlowDown)
		if !down {
			e.FlowDown()
		}
		in.repeat(e, c)
		if !down {
			e.FlowRight()
		}
	case "b":
		e.Beep()
	case "alloff":
		e.AllOff()
	case "color":
		if n, ok := attrInt(c, "v"); ok {
			e.SetColor(terminal.Color(n))
		}
	case "bgcolor":
		if n, ok := attrInt(c, "v"); ok {
			e.SetBgColor(terminal.Color(n))
		}
	case "dblon":
		e.SetDouble(terminal.DoubleBoth)
	case "dbloff":
		e.SetDouble(terminal.DoubleNone)
	case "hdblon":
		e.SetDouble(e.Double() | terminal.DoubleHorizontal)
	case "hdbloff":
		e.SetDouble(e.Double() & terminal.DoubleVertical)
	case "vdblon":
		e.SetDouble(e.Double() | terminal.DoubleVertical)
	case "vdbloff":
		e.SetDouble(e.Double() & terminal.DoubleHorizontal)
	case "setsw":
		in.setWindow(e, c)
	case "resetsw":
		e.ResetWindow()
	case "cursor":
		in.cursor(e, strings.TrimSpace(c.Text()))
	case "autorollon":
		in.autoRoll = true
		e.SetAutoRoll(true)
	case "autorolloff":
		in.autoRoll = false
		e.SetAutoRoll(false)
	case "editon":
		e.EditOn()
	case "editoff":
		e.EditOff()
	case "it":
		e.InvertCase()
	case "in":
		e.NormalCase()
	case "wait":
		if n, ok := attrInt(c, "n"); ok && n > 0 {
			in.opts.Sleep(time.Duration(n) * time.Second)
		}
	default:
		in.log.Warn("unknown display command", "command", c.Name)
	}
}

// flowDown displays the children of c filling downward, then restores the
// previous flow direction.
func (in *Interpreter) flowDown(e *terminal.Engine, c *markup.Element) {
	down := e.Attr().Has(terminal.AttrFlowDown)
	if !down {
		e.FlowDown()
	}
	in.displayChildren(e, c)
	if !down {
		e.FlowRight()
	}
}

// repeat displays a character n times. The character is a glyph index in
// a c child, a named glyph child, or the first character of the text.
func (in *Interpreter) repeat(e *terminal.Engine, c *markup.Element) {
	n, ok := attrInt(c, "n")
	if !ok {
		return
	}
	if cc := c.Child("c"); cc != nil {
		if idx, ok := textInt(cc); ok {
			e.DisplayRepeat(terminal.GlyphRune(idx, e.Double()), n)
		}
		return
	}
	for _, child := range c.Children {
		if child.Elem == nil {
			continue
		}
		if g, ok := terminal.GlyphByName(child.Elem.Name); ok {
			e.DisplayRepeat(g.Rune(e.Double()), n)
			return
		}
	}
	text := []rune(in.toScreen(c.Text()))
	if len(text) > 0 {
		e.DisplayRepeat(text[0], n)
	}
}

// setWindow applies setsw. A lone top or left keeps the opposite edge,
// pushing it out when the new edge passes it.
func (in *Interpreter) setWindow(e *terminal.Engine, c *markup.Element) {
	win := e.Window()
	t, tok := attrInt(c, "t")
	b, bok := attrInt(c, "b")
	switch {
	case tok && bok:
		e.SetWindowTB(t+1, b+1)
	case tok:
		e.SetWindowTB(t+1, max(win.Bottom+1, t+1))
	case bok:
		e.SetWindowTB(win.Top+1, b+1)
	}

	win = e.Window()
	l, lok := attrInt(c, "l")
	r, rok := attrInt(c, "r")
	switch {
	case lok && rok:
		e.SetWindowLR(l+1, r+1)
	case lok:
		e.SetWindowLR(l+1, max(win.Right+1, l+1))
	case rok:
		e.SetWindowLR(win.Left+1, r+1)
	}
}

func (in *Interpreter) cursor(e *terminal.Engine, mode string) {
	switch mode {
	case "on":
		e.CursorOn()
	case "off":
		e.CursorOff()
	case "norm":
		e.CursorNorm()
	default:
		if shape, ok := cursorShapes[mode]; ok {
			e.SetCursorShape(shape)
		}
	}
}
