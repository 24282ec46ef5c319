// Package menu draws the local session menu on top of the terminal grid.
// The menu is opened with a hot key and consumes every key while visible,
// so nothing typed into it reaches the server.
package menu

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// Host is the surface the menu draws on. terminal.TerminalRenderer
// implements it.
type Host interface {
	SetOverlay(draw func(tcell.Screen))
}

// Item represents a single menu item
type Item struct {
	Label     string
	Shortcut  rune
	Action    func() error
	Enabled   bool
	Separator bool
}

// Menu represents the session menu
type Menu struct {
	mu       sync.Mutex
	host     Host
	hotkey   tcell.Key
	title    string
	items    []Item
	selected int
	visible  bool
	width    int
	height   int

	onError func(error)
}

// NewMenu creates a menu opened by hotkey
func NewMenu(title string, host Host, hotkey tcell.Key) *Menu {
	m := &Menu{
		title:  title,
		host:   host,
		hotkey: hotkey,
	}
	m.updateDimensions()
	return m
}

// SetOnError sets the callback receiving errors returned by item actions
func (m *Menu) SetOnError(fn func(error)) {
	m.mu.Lock()
	m.onError = fn
	m.mu.Unlock()
}

// AddItem adds a menu item
func (m *Menu) AddItem(label string, shortcut rune, action func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, Item{
		Label:    label,
		Shortcut: shortcut,
		Action:   action,
		Enabled:  true,
	})
	m.updateDimensions()
}

// AddSeparator adds a separator line
func (m *Menu) AddSeparator() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, Item{Separator: true})
	m.updateDimensions()
}

// EnableItem enables or disables a menu item
func (m *Menu) EnableItem(index int, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index >= 0 && index < len(m.items) {
		m.items[index].Enabled = enabled
	}
}

// Show displays the menu
func (m *Menu) Show() {
	m.mu.Lock()
	m.visible = true
	if !m.selectable(m.selected) {
		m.moveSelection(1)
	}
	m.mu.Unlock()
	m.host.SetOverlay(m.Draw)
}

// Hide removes the menu from the screen
func (m *Menu) Hide() {
	m.mu.Lock()
	m.visible = false
	m.mu.Unlock()
	m.host.SetOverlay(nil)
}

// IsVisible returns whether the menu is visible
func (m *Menu) IsVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

// HandleKey processes a key event and reports whether it was consumed.
// It has the signature of a renderer interceptor.
func (m *Menu) HandleKey(ev *tcell.EventKey) bool {
	m.mu.Lock()
	if !m.visible {
		m.mu.Unlock()
		if ev.Key() == m.hotkey {
			m.Show()
			return true
		}
		return false
	}

	var run *Item
	redraw, hide := false, false
	switch ev.Key() {
	case tcell.KeyEscape, m.hotkey:
		hide = true
	case tcell.KeyUp:
		m.moveSelection(-1)
		redraw = true
	case tcell.KeyDown, tcell.KeyTab:
		m.moveSelection(1)
		redraw = true
	case tcell.KeyEnter:
		if m.selectable(m.selected) {
			item := m.items[m.selected]
			run, hide = &item, true
		}
	case tcell.KeyRune:
		for i, item := range m.items {
			if m.selectable(i) && item.Shortcut != 0 && item.Shortcut == ev.Rune() {
				run, hide = &item, true
				break
			}
		}
	}
	onError := m.onError
	m.mu.Unlock()

	if hide {
		m.Hide()
	} else if redraw {
		m.host.SetOverlay(m.Draw)
	}
	if run != nil && run.Action != nil {
		if err := run.Action(); err != nil && onError != nil {
			onError(err)
		}
	}
	return true
}

// Draw renders the menu centered on s.
func (m *Menu) Draw(s tcell.Screen) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.visible {
		return
	}

	style := tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	selectedStyle := tcell.StyleDefault.Background(tcell.ColorWhite).Foreground(tcell.ColorBlack)
	disabledStyle := style.Foreground(tcell.ColorGray)

	sw, sh := s.Size()
	x0 := max((sw-m.width)/2, 0)
	y0 := max((sh-m.height)/2, 0)

	drawBorder(s, x0, y0, m.width, m.height, style)

	y := y0 + 1
	if m.title != "" {
		drawText(s, x0+(m.width-runewidth.StringWidth(m.title))/2, y, m.title, style.Bold(true))
		y++
		hline(s, x0+1, x0+m.width-2, y, style)
		y++
	}

	for i, item := range m.items {
		if item.Separator {
			hline(s, x0+1, x0+m.width-2, y, style)
			y++
			continue
		}
		itemStyle := style
		if !item.Enabled {
			itemStyle = disabledStyle
		} else if i == m.selected {
			itemStyle = selectedStyle
		}
		for x := x0 + 1; x < x0+m.width-1; x++ {
			s.SetContent(x, y, ' ', nil, itemStyle)
		}
		drawText(s, x0+2, y, item.Label, itemStyle)
		if item.Shortcut != 0 {
			s.SetContent(x0+m.width-3, y, item.Shortcut, nil, itemStyle)
		}
		y++
	}
}

func (m *Menu) selectable(i int) bool {
	return i >= 0 && i < len(m.items) && m.items[i].Enabled && !m.items[i].Separator
}

// moveSelection moves the selection up or down, skipping separators and
// disabled items
func (m *Menu) moveSelection(direction int) {
	n := len(m.items)
	for step := 1; step <= n; step++ {
		i := ((m.selected+direction*step)%n + n) % n
		if m.selectable(i) {
			m.selected = i
			return
		}
	}
}

// updateDimensions updates menu dimensions based on items
func (m *Menu) updateDimensions() {
	maxWidth := runewidth.StringWidth(m.title) + 4
	for _, item := range m.items {
		if w := runewidth.StringWidth(item.Label) + 7; !item.Separator && w > maxWidth {
			maxWidth = w
		}
	}
	m.width = maxWidth
	m.height = len(m.items) + 2
	if m.title != "" {
		m.height += 2
	}
}

func drawBorder(s tcell.Screen, x0, y0, w, h int, style tcell.Style) {
	x1, y1 := x0+w-1, y0+h-1
	s.SetContent(x0, y0, '┌', nil, style)
	s.SetContent(x1, y0, '┐', nil, style)
	s.SetContent(x0, y1, '└', nil, style)
	s.SetContent(x1, y1, '┘', nil, style)
	hline(s, x0+1, x1-1, y0, style)
	hline(s, x0+1, x1-1, y1, style)
	for y := y0 + 1; y < y1; y++ {
		s.SetContent(x0, y, '│', nil, style)
		s.SetContent(x1, y, '│', nil, style)
		for x := x0 + 1; x < x1; x++ {
			s.SetContent(x, y, ' ', nil, style)
		}
	}
}

func hline(s tcell.Screen, from, to, y int, style tcell.Style) {
	for x := from; x <= to; x++ {
		s.SetContent(x, y, '─', nil, style)
	}
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, ch := range text {
		s.SetContent(x, y, ch, nil, style)
		x += runewidth.RuneWidth(ch)
	}
}
