package interp

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"smartclient/pkg/dispatch"
	"smartclient/pkg/markup"
	"smartclient/pkg/terminal"
)

// handleGetWindow replies with the 0-based scroll window.
func (in *Interpreter) handleGetWindow(cmd *markup.Element) error {
	w := in.Engine().Window()
	reply := markup.New("getwindow").
		SetAttrInt("t", w.Top).
		SetAttrInt("b", w.Bottom).
		SetAttrInt("l", w.Left).
		SetAttrInt("r", w.Right)
	return in.sess.Send(reply)
}

// handleSync echoes s so the server can tell when earlier output is done.
func (in *Interpreter) handleSync(cmd *markup.Element) error {
	return in.sess.Send(markup.New("s"))
}

func (in *Interpreter) handleQuit(cmd *markup.Element) error {
	in.log.Info("server requested quit")
	in.sess.Abort()
	if err := in.sess.Terminate(); err != nil && !errors.Is(err, dispatch.ErrQueueClosed) {
		return err
	}
	return nil
}

// handleRollout runs a local shell command and reports whether it exited
// cleanly.
func (in *Interpreter) handleRollout(cmd *markup.Element) error {
	if !cmd.HasChildren() {
		return nil
	}
	command := cmd.Text()
	reply := markup.New("r")
	if err := in.opts.Shell(command); err != nil {
		in.log.Info("rollout failed", "command", command, "error", err)
		reply.SetAttr("e", "1")
	}
	return in.sess.Send(reply)
}

// RunShell runs command through the platform shell on the process's
// standard streams.
func RunShell(command string) error {
	var c *exec.Cmd
	if runtime.GOOS == "windows" {
		c = exec.Command("cmd.exe", "/c", command)
	} else {
		c = exec.Command("/bin/sh", "-c", command)
	}
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	return c.Run()
}

func (in *Interpreter) handleRestore(scope terminal.RestoreScope) HandlerFunc {
	return func(cmd *markup.Element) error {
		in.Engine().VidRestore(scope, cmd.Text(), in.opts.PCCharset)
		return nil
	}
}

// handleSmartServer applies server-side client settings. Geometry and
// keyin case only take effect if the engine has not been created yet.
func (in *Interpreter) handleSmartServer(cmd *markup.Element) error {
	for _, n := range cmd.Children {
		if n.IsText() {
			continue
		}
		switch n.Elem.Name {
		case "display":
			in.displaySettings(n.Elem)
		case "keyin":
			in.keyinSettings(n.Elem)
		default:
			in.log.Debug("ignoring server setting", "setting", n.Elem.Name)
		}
	}
	return nil
}

func childValue(c *markup.Element) string {
	return strings.TrimSpace(c.Text())
}

func (in *Interpreter) displaySettings(d *markup.Element) {
	for _, n := range d.Children {
		if n.IsText() {
			continue
		}
		c := n.Elem
		v := childValue(c)
		switch c.Name {
		case "autoroll":
			if v == "off" {
				in.autoRoll = false
				if in.engine != nil {
					in.engine.SetAutoRoll(false)
				}
			}
		case "columns", "lines":
			size, err := strconv.Atoi(v)
			if err != nil || size <= 0 {
				in.log.Warn("invalid display size", "setting", c.Name, "value", v)
				continue
			}
			if in.engine != nil {
				in.log.Warn("display size ignored after engine creation", "setting", c.Name, "value", size)
				continue
			}
			if c.Name == "columns" {
				in.width = size
			} else {
				in.height = size
			}
		case "colormode":
			in.ansi256 = v == "ansi256"
		}
	}
}

func (in *Interpreter) keyinSettings(k *markup.Element) {
	for _, n := range k.Children {
		if n.IsText() {
			continue
		}
		c := n.Elem
		v := childValue(c)
		switch c.Name {
		case "case":
			in.opts.KeyinUpper = v == "upper"
			in.opts.KeyinReverse = v == "reverse"
		case "cancelkey", "interruptkey":
			f, err := terminal.ParseFuncKey(v)
			if err != nil {
				in.log.Warn("invalid keyin setting", "setting", c.Name, "error", err)
				continue
			}
			if c.Name == "cancelkey" {
				in.cancelKey = f
				if in.engine != nil {
					in.engine.SetCancelKey(f)
				}
			} else {
				in.interruptKey = f
				if in.engine != nil {
					in.engine.SetInterruptKey(f)
				}
			}
		case "endkey":
			if v == "xkeys" {
				in.opts.ExtendedEndKeys = true
				if in.engine != nil {
					in.engine.SetStandardEndKeys(true, in.opts.ShiftFKeys)
				}
			}
		case "fkeyshift":
			if v == "old" {
				in.opts.ShiftFKeys = true
				if in.engine != nil {
					in.engine.SetStandardEndKeys(in.opts.ExtendedEndKeys, true)
				}
			}
		}
	}
}
