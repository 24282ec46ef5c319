package interp

import (
	"strconv"
	"strings"
	"time"

	"smartclient/pkg/markup"
	"smartclient/pkg/terminal"
)

// clearTimeoutValue in a timeout element means wait indefinitely.
const clearTimeoutValue = 65535

// handleKeyin runs a k command: mode switches, display commands and one
// keyin per cf/cn field, each answered with an r result.
func (in *Interpreter) handleKeyin(cmd *markup.Element) error {
	if !cmd.HasChildren() {
		return nil
	}
	e := in.Engine()
	defer e.ClearTimeout()

	for _, n := range cmd.Children {
		if n.IsText() {
			e.Display(in.toScreen(n.Text))
			continue
		}
		c := n.Elem
		switch c.Name {
		case "cf", "cn":
			stop, err := in.keyinField(e, c)
			if err != nil || stop {
				return err
			}
		case "dcon":
			in.dcflag = true
			e.DecimalCommaOn()
		case "dcoff":
			in.dcflag = false
			e.DecimalCommaOff()
		case "eon":
			e.EchoOn()
		case "eoff":
			e.EchoOff()
		case "eson":
			e.EchoSecretOn()
		case "esoff":
			e.EchoSecretOff()
		case "eschar":
			if r := []rune(c.Text()); len(r) > 0 {
				e.SetEchoSecretChar(r[0])
			}
		case "uc":
			e.UpperCase()
		case "lc":
			e.LowerCase()
		case "cl":
			e.ClearKeyAhead()
		case "kcon":
			e.AutoEnterOn()
		case "kcoff":
			e.AutoEnterOff()
		case "timeout":
			if secs, ok := attrInt(c, "n"); ok {
				if secs == clearTimeoutValue {
					e.ClearTimeout()
				} else {
					e.SetTimeout(time.Duration(secs) * time.Second)
				}
			}
		default:
			in.displayControl(e, c)
		}
	}
	return nil
}

func fieldAttr(c *markup.Element, name string) (int, error) {
	v, ok := c.Attr(name)
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, NewCommandError("k", "invalid %s attribute %q on %s", name, v, c.Name)
	}
	return n, nil
}

// keyinField reads one field and reports the outcome. It returns true when
// a break ended the keyin, which abandons the rest of the k command.
func (in *Interpreter) keyinField(e *terminal.Engine, c *markup.Element) (bool, error) {
	f := terminal.Field{Numeric: c.Name == "cn"}
	var err error
	if f.Width, err = fieldAttr(c, "w"); err != nil {
		return false, err
	}
	if f.Decimals, err = fieldAttr(c, "r"); err != nil {
		return false, err
	}
	if f.VisibleWidth, err = fieldAttr(c, "kl"); err != nil {
		return false, err
	}
	if c.HasAttr("edit") {
		e.Edit()
	}
	if c.HasAttr("de") {
		e.DigitEntry()
	}
	if len(c.Children) > 0 {
		first := c.Children[0]
		if first.IsText() {
			f.Initial = in.toScreen(first.Text)
		} else {
			f.Initial = in.toScreen(first.Elem.Text())
		}
	}
	if f.Width == 0 {
		return false, nil
	}

	res := e.Keyin(f)
	result := markup.New("r")
	if res.Count > 0 {
		text := in.toWire(res.Text)
		if f.Numeric && in.dcflag {
			text = strings.ReplaceAll(text, ".", ",")
		}
		result.AddText(text)
	}

	defer e.DigitEntryOff()

	a := e.GetAction()
	switch a.Kind {
	case terminal.ActionBreak:
		if err := in.sess.Send(result); err != nil {
			return true, err
		}
		return true, in.sess.Send(markup.New("break"))
	case terminal.ActionInterrupt:
		result.SetAttr("e", terminal.Func(e.InterruptKey()).WireString())
		return false, in.sess.Send(result)
	case terminal.ActionTrap:
		if err := in.sess.Send(markup.NewText("t", a.Key.WireString())); err != nil {
			return false, err
		}
		return false, in.sess.Send(result)
	}

	switch {
	case res.EndKey.IsTimeout():
		result.SetAttr("e", "0")
	case !res.EndKey.IsNone():
		result.SetAttr("e", res.EndKey.WireString())
	}
	return false, in.sess.Send(result)
}
