package interp

import (
	"strings"

	"smartclient/pkg/markup"
	"smartclient/pkg/terminal"
)

// wireKey reads the decimal key code held by a c element.
func wireKey(cmd string, c *markup.Element) (terminal.Key, error) {
	k, err := terminal.ParseWireKey(strings.TrimSpace(c.Text()))
	if err != nil {
		return terminal.NoKey, &ProtocolDesyncError{Command: cmd, Msg: err.Error()}
	}
	return k, nil
}

// eachKey calls fn for every character of the text children and every key
// code element of cmd. Elements named in special are passed to it instead.
func eachKey(cmd *markup.Element, special func(name string) bool, fn func(terminal.Key)) error {
	for _, n := range cmd.Children {
		if n.IsText() {
			for _, r := range n.Text {
				fn(terminal.Char(r))
			}
			continue
		}
		if special != nil && special(n.Elem.Name) {
			continue
		}
		k, err := wireKey(cmd.Name, n.Elem)
		if err != nil {
			return err
		}
		fn(k)
	}
	return nil
}

func (in *Interpreter) handleSetEndKey(cmd *markup.Element) error {
	if !cmd.HasChildren() {
		return nil
	}
	return eachKey(cmd, nil, in.Engine().SetEndKey)
}

func (in *Interpreter) handleClearEndKey(cmd *markup.Element) error {
	if !cmd.HasChildren() {
		return nil
	}
	e := in.Engine()
	special := func(name string) bool {
		if name != "all" {
			return false
		}
		e.ResetEndKeys()
		return true
	}
	return eachKey(cmd, special, e.ClearEndKey)
}

// handleTrapSet sets traps. Server traps survive a trap reset.
func (in *Interpreter) handleTrapSet(cmd *markup.Element) error {
	if !cmd.HasChildren() {
		return nil
	}
	e := in.Engine()
	special := func(name string) bool {
		switch name {
		case "all":
			e.SetTrapAll(true)
		case "chars":
			e.SetTrapChars(true)
		case "fkeys":
			e.SetTrapFuncKeys(true)
		default:
			return false
		}
		return true
	}
	return eachKey(cmd, special, func(k terminal.Key) { e.SetTrapKey(k, true) })
}

func (in *Interpreter) handleTrapClear(cmd *markup.Element) error {
	if !cmd.HasChildren() {
		return nil
	}
	e := in.Engine()
	special := func(name string) bool {
		switch name {
		case "all":
			e.ClearTrapAll()
		case "chars":
			e.ClearTrapChars()
		case "fkeys":
			e.ClearTrapFuncKeys()
		default:
			return false
		}
		return true
	}
	return eachKey(cmd, special, e.ClearTrapKey)
}
