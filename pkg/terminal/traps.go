package terminal

import "time"

// Control characters with fixed meaning on the key stream.
const (
	breakChar     = 3
	interruptChar = 26
)

// ActionKind classifies a pending keyboard action.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionBreak
	ActionInterrupt
	ActionTrap
)

// Action is the oldest pending keyboard event that must be reported to the
// server outside of a keyin.
type Action struct {
	Kind ActionKind
	Key  Key
}

type trapEntry struct {
	key     Key
	noReset bool
	used    bool
}

type trapTable struct {
	all, chars, fkeys                   bool
	allNoReset, charsNoReset, fkNoReset bool
	list                                []trapEntry
}

// trim drops unused entries from the tail of the list.
func (t *trapTable) trim() {
	n := len(t.list)
	for n > 0 && !t.list[n-1].used {
		n--
	}
	t.list = t.list[:n]
}

func (t *trapTable) removeWhere(match func(Key) bool) {
	for i := range t.list {
		if t.list[i].used && match(t.list[i].key) {
			t.list[i] = trapEntry{}
		}
	}
}

func (t *trapTable) reset() {
	t.all, t.chars, t.fkeys = false, false, false
	t.list = t.list[:0]
}

// SetTrapAll traps every key. Class and specific traps are discarded.
func (e *Engine) SetTrapAll(noReset bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.traps.all = true
	e.traps.allNoReset = noReset
	e.traps.chars, e.traps.fkeys = false, false
	e.traps.list = e.traps.list[:0]
	e.rescanLocked()
}

// SetTrapChars traps every character key.
func (e *Engine) SetTrapChars(noReset bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.traps.chars = true
	e.traps.charsNoReset = noReset
	e.traps.removeWhere(Key.IsChar)
	e.traps.all = false
	e.rescanLocked()
}

// SetTrapFuncKeys traps every function key.
func (e *Engine) SetTrapFuncKeys(noReset bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.traps.fkeys = true
	e.traps.fkNoReset = noReset
	e.traps.removeWhere(Key.IsFunc)
	e.traps.all = false
	e.rescanLocked()
}

// SetTrapKey traps one key. Characters are matched without case.
func (e *Engine) SetTrapKey(k Key, noReset bool) {
	if k.IsNone() || k.IsTimeout() {
		return
	}
	k = k.Upper()
	e.mu.Lock()
	defer e.mu.Unlock()
	t := &e.traps
	slot, free := -1, -1
	for i, ent := range t.list {
		if ent.used && ent.key == k {
			slot = i
			break
		}
		if free < 0 && !ent.used {
			free = i
		}
	}
	switch {
	case slot >= 0:
	case free >= 0:
		slot = free
	case len(t.list) < maxTraps:
		t.list = append(t.list, trapEntry{})
		slot = len(t.list) - 1
	default:
		return
	}
	t.list[slot] = trapEntry{key: k, noReset: noReset, used: true}
	e.rescanLocked()
}

// rescanLocked checks buffered type-ahead against newly set traps. A hit
// discards the whole buffer.
func (e *Engine) rescanLocked() {
	if len(e.pending) != 0 {
		return
	}
	for i := e.head; i != e.tail; {
		k := e.ring[i]
		i = (i + 1) % keyBufferSize
		if e.checkTrapLocked(k) {
			e.head, e.tail = 0, 0
			return
		}
	}
}

// ClearTrapAll removes every trap.
func (e *Engine) ClearTrapAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.traps.reset()
}

// ClearTrapChars stops trapping character keys. An all-keys trap is
// narrowed to function keys.
func (e *Engine) ClearTrapChars() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearTrapCharsLocked()
}

func (e *Engine) clearTrapCharsLocked() {
	t := &e.traps
	if t.all && !t.fkeys {
		t.all = false
		t.fkeys = true
		t.fkNoReset = t.allNoReset
	}
	t.chars = false
	t.removeWhere(Key.IsChar)
	t.trim()
}

// ClearTrapFuncKeys stops trapping function keys. An all-keys trap is
// narrowed to character keys.
func (e *Engine) ClearTrapFuncKeys() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearTrapFuncKeysLocked()
}

func (e *Engine) clearTrapFuncKeysLocked() {
	t := &e.traps
	if t.all && !t.chars {
		t.all = false
		t.chars = true
		t.charsNoReset = t.allNoReset
	}
	t.fkeys = false
	t.removeWhere(Key.IsFunc)
	t.trim()
}

// ClearTrapKey removes the trap on k.
func (e *Engine) ClearTrapKey(k Key) {
	k = k.Upper()
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, ent := range e.traps.list {
		if ent.used && ent.key == k {
			e.traps.list[i] = trapEntry{}
			break
		}
	}
	e.traps.trim()
}

// checkTrapLocked reports whether k fires a trap, queueing it as pending.
// Traps armed without noReset are consumed by the hit.
func (e *Engine) checkTrapLocked(k Key) bool {
	k = k.Upper()
	t := &e.traps
	found := false
	switch {
	case t.all:
		found = true
		if !t.allNoReset {
			t.reset()
		}
	case k.IsChar():
		if t.chars {
			found = true
			if !t.charsNoReset {
				e.clearTrapCharsLocked()
			}
		}
	case t.fkeys:
		found = true
		if !t.fkNoReset {
			e.clearTrapFuncKeysLocked()
		}
	}
	if !found {
		for i, ent := range t.list {
			if ent.used && ent.key == k {
				if !ent.noReset {
					t.list[i] = trapEntry{}
					t.trim()
				}
				found = true
				break
			}
		}
	}
	if !found || len(e.pending) >= maxPendingTrap {
		return false
	}
	e.pending = append(e.pending, k)
	e.actionPending = true
	e.notifyLocked()
	return true
}

func (e *Engine) notifyLocked() {
	if e.onAction != nil {
		e.onAction()
	}
}

func (e *Engine) wakeLocked() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// RecvKey accepts a key from a keyboard source. It may be called from any
// goroutine. Ctrl-C raises a break, Ctrl-Z an interrupt, trapped keys become
// pending actions and everything else is buffered as type-ahead.
func (e *Engine) RecvKey(k Key) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case k.IsChar() && k.Code == breakChar:
		e.actionPending, e.breakPending = true, true
		e.notifyLocked()
	case k.IsChar() && k.Code == interruptChar:
		e.actionPending, e.interruptPending = true, true
		e.notifyLocked()
	case e.checkTrapLocked(k):
		e.head, e.tail = 0, 0
	default:
		next := (e.tail + 1) % keyBufferSize
		if next == e.head {
			return
		}
		e.ring[e.tail] = k
		e.tail = next
	}
	e.wakeLocked()
}

// Break raises a break as if Ctrl-C had been typed.
func (e *Engine) Break() { e.RecvKey(Char(breakChar)) }

// ClearKeyAhead discards buffered type-ahead.
func (e *Engine) ClearKeyAhead() {
	e.mu.Lock()
	e.head, e.tail = 0, 0
	e.mu.Unlock()
}

// Buffered returns the number of type-ahead keys.
func (e *Engine) Buffered() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return (e.tail - e.head + keyBufferSize) % keyBufferSize
}

// ActionPending reports whether GetAction has something to return.
func (e *Engine) ActionPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actionPending
}

// GetAction pops the oldest pending action. A break or interrupt discards
// all pending traps.
func (e *Engine) GetAction() Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.actionPending {
		return Action{}
	}
	if e.breakPending {
		e.pending = e.pending[:0]
		e.actionPending, e.interruptPending, e.breakPending = false, false, false
		return Action{Kind: ActionBreak}
	}
	if e.interruptPending {
		e.pending = e.pending[:0]
		e.actionPending, e.interruptPending = false, false
		return Action{Kind: ActionInterrupt}
	}
	if len(e.pending) == 0 {
		e.actionPending = false
		return Action{}
	}
	k := e.pending[0]
	e.pending = append(e.pending[:0], e.pending[1:]...)
	if len(e.pending) == 0 {
		e.actionPending = false
	}
	return Action{Kind: ActionTrap, Key: k}
}

// getChar returns the next type-ahead key, waiting for one if needed. It
// returns NoKey when an action is pending or the engine is aborted, and
// TimeoutKey when the keyin timeout expires first.
func (e *Engine) getChar() Key {
	var timer <-chan time.Time
	if e.kflags&flagTimeout != 0 {
		t := time.NewTimer(e.timeout)
		defer t.Stop()
		timer = t.C
	}
	for {
		e.mu.Lock()
		if e.actionPending {
			e.mu.Unlock()
			return NoKey
		}
		if e.head != e.tail {
			k := e.ring[e.head]
			e.head = (e.head + 1) % keyBufferSize
			e.mu.Unlock()
			return k
		}
		e.mu.Unlock()
		select {
		case <-e.wake:
		case <-timer:
			return TimeoutKey
		case <-e.abort:
			return NoKey
		}
	}
}

// SetEndKey adds k to the keys that terminate a keyin. Duplicates are
// ignored.
func (e *Engine) SetEndKey(k Key) {
	if k.IsNone() || k.IsTimeout() || e.IsEndKey(k) {
		return
	}
	for i, ek := range e.endKeys {
		if ek.IsNone() {
			e.endKeys[i] = k
			return
		}
	}
	if len(e.endKeys) < maxEndKeys {
		e.endKeys = append(e.endKeys, k)
	}
}

// ClearEndKey removes k from the end keys.
func (e *Engine) ClearEndKey(k Key) {
	for i, ek := range e.endKeys {
		if ek == k {
			e.endKeys[i] = NoKey
			break
		}
	}
	n := len(e.endKeys)
	for n > 0 && e.endKeys[n-1].IsNone() {
		n--
	}
	e.endKeys = e.endKeys[:n]
}

// ResetEndKeys leaves Enter as the only end key.
func (e *Engine) ResetEndKeys() {
	e.endKeys = append(e.endKeys[:0], Func(FuncEnter))
}

// IsEndKey reports whether k terminates a keyin.
func (e *Engine) IsEndKey(k Key) bool {
	if k.IsNone() {
		return false
	}
	for _, ek := range e.endKeys {
		if ek == k {
			return true
		}
	}
	return false
}

// LastEndKey returns the key that ended the previous keyin.
func (e *Engine) LastEndKey() Key { return e.lastEndKey }

// SetStandardEndKeys adds the end keys a fresh session starts with: F1-F20
// and the arrow keys, optionally the navigation and editing keys, and
// optionally shift-F1 through shift-F10.
func (e *Engine) SetStandardEndKeys(extended, shiftFKeys bool) {
	for n := 1; n <= 20; n++ {
		e.SetEndKey(Func(F(n)))
	}
	for _, f := range []FuncKey{FuncUp, FuncDown, FuncLeft, FuncRight} {
		e.SetEndKey(Func(f))
	}
	if extended {
		for _, f := range []FuncKey{FuncHome, FuncEnd, FuncPgUp, FuncPgDn, FuncInsert, FuncDelete, FuncTab, FuncBackTab, FuncEscape} {
			e.SetEndKey(Func(f))
		}
	}
	if shiftFKeys {
		for n := 1; n <= 10; n++ {
			e.SetEndKey(Func(ShiftF(n)))
		}
	}
}
