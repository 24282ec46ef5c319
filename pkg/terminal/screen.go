package terminal

import "sync"

// Rect is an inclusive, zero based cell rectangle.
type Rect struct {
	Top    int
	Bottom int
	Left   int
	Right  int
}

// Width returns the number of columns in r.
func (r Rect) Width() int { return r.Right - r.Left + 1 }

// Height returns the number of rows in r.
func (r Rect) Height() int { return r.Bottom - r.Top + 1 }

// Empty reports whether r covers no cells.
func (r Rect) Empty() bool { return r.Top > r.Bottom || r.Left > r.Right }

// Union returns the smallest rectangle covering r and o.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		Top:    min(r.Top, o.Top),
		Bottom: max(r.Bottom, o.Bottom),
		Left:   min(r.Left, o.Left),
		Right:  max(r.Right, o.Right),
	}
}

// Cell represents a single character cell of the grid
type Cell struct {
	Char rune `json:"char"`
	Attr Attr `json:"attr"`
}

// Direction is the shift direction of a rectangle move.
type Direction int

const (
	MoveUp Direction = iota + 1
	MoveDown
	MoveLeft
	MoveRight
)

// Screen is the character and attribute grid
type Screen struct {
	Width  int
	Height int
	Buffer [][]Cell

	// Dirty region tracking
	Dirty  bool
	bounds Rect

	mutex sync.RWMutex
}

// NewScreen creates a blank grid
func NewScreen(width, height int) *Screen {
	buffer := make([][]Cell, height)
	for i := range buffer {
		buffer[i] = make([]Cell, width)
		for j := range buffer[i] {
			buffer[i][j] = Cell{Char: ' ', Attr: DefaultAttr}
		}
	}
	return &Screen{
		Width:  width,
		Height: height,
		Buffer: buffer,
		Dirty:  true,
		bounds: Rect{Top: 0, Bottom: height - 1, Left: 0, Right: width - 1},
	}
}

// CellAt returns the cell at column x, row y (thread-safe)
func (s *Screen) CellAt(x, y int) Cell {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if y < 0 || y >= s.Height || x < 0 || x >= s.Width {
		return Cell{Char: ' '}
	}
	return s.Buffer[y][x]
}

// Row returns the characters of row y as a string (thread-safe)
func (s *Screen) Row(y int) string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if y < 0 || y >= s.Height {
		return ""
	}
	runes := make([]rune, s.Width)
	for x, c := range s.Buffer[y] {
		runes[x] = c.Char
	}
	return string(runes)
}

// GetDirtyBounds returns the region changed since ClearDirty (thread-safe)
func (s *Screen) GetDirtyBounds() (Rect, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if !s.Dirty {
		return Rect{}, false
	}
	return s.bounds, true
}

// ClearDirty clears the dirty region
func (s *Screen) ClearDirty() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Dirty = false
	s.bounds = Rect{Top: s.Height, Bottom: -1, Left: s.Width, Right: -1}
}

// markDirty must be called with the write lock held.
func (s *Screen) markDirty(r Rect) {
	if !s.Dirty {
		s.bounds = r
		s.Dirty = true
		return
	}
	s.bounds = s.bounds.Union(r)
}

// clip limits r to the grid.
func (s *Screen) clip(r Rect) (Rect, bool) {
	r.Top = max(r.Top, 0)
	r.Left = max(r.Left, 0)
	r.Bottom = min(r.Bottom, s.Height-1)
	r.Right = min(r.Right, s.Width-1)
	return r, !r.Empty()
}

// EraseRect fills r with blanks in attr.
func (s *Screen) EraseRect(r Rect, attr Attr) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	r, ok := s.clip(r)
	if !ok {
		return
	}
	for y := r.Top; y <= r.Bottom; y++ {
		for x := r.Left; x <= r.Right; x++ {
			s.Buffer[y][x] = Cell{Char: ' ', Attr: attr}
		}
	}
	s.markDirty(r)
}

// MoveRect shifts the contents of r by one cell in dir. The vacated row or
// column is blanked with a zero attribute.
func (s *Screen) MoveRect(dir Direction, r Rect) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	r, ok := s.clip(r)
	if !ok {
		return
	}
	blank := Cell{Char: ' '}
	b := s.Buffer
	switch dir {
	case MoveUp:
		for y := r.Top; y <= r.Bottom; y++ {
			for x := r.Left; x <= r.Right; x++ {
				if y != r.Bottom {
					b[y][x] = b[y+1][x]
				} else {
					b[y][x] = blank
				}
			}
		}
	case MoveDown:
		for y := r.Bottom; y >= r.Top; y-- {
			for x := r.Left; x <= r.Right; x++ {
				if y != r.Top {
					b[y][x] = b[y-1][x]
				} else {
					b[y][x] = blank
				}
			}
		}
	case MoveLeft:
		for y := r.Top; y <= r.Bottom; y++ {
			for x := r.Left; x <= r.Right; x++ {
				if x != r.Right {
					b[y][x] = b[y][x+1]
				} else {
					b[y][x] = blank
				}
			}
		}
	case MoveRight:
		for y := r.Top; y <= r.Bottom; y++ {
			for x := r.Right; x >= r.Left; x-- {
				if x != r.Left {
					b[y][x] = b[y][x-1]
				} else {
					b[y][x] = blank
				}
			}
		}
	}
	s.markDirty(r)
}

// PutChars stores chars row-major into r, all in attr, stopping when chars
// is exhausted.
func (s *Screen) PutChars(r Rect, chars []rune, attr Attr) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	r, ok := s.clip(r)
	if !ok || len(chars) == 0 {
		return
	}
	i := 0
	for y := r.Top; y <= r.Bottom && i < len(chars); y++ {
		for x := r.Left; x <= r.Right && i < len(chars); x++ {
			s.Buffer[y][x] = Cell{Char: chars[i], Attr: attr}
			i++
		}
	}
	s.markDirty(r)
}

// PutCells stores cells row-major into r, stopping when cells is exhausted.
func (s *Screen) PutCells(r Rect, cells []Cell) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	r, ok := s.clip(r)
	if !ok || len(cells) == 0 {
		return
	}
	i := 0
	for y := r.Top; y <= r.Bottom && i < len(cells); y++ {
		for x := r.Left; x <= r.Right && i < len(cells); x++ {
			s.Buffer[y][x] = cells[i]
			i++
		}
	}
	s.markDirty(r)
}

// GetCells returns the cells of r row-major.
func (s *Screen) GetCells(r Rect) []Cell {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	r, ok := s.clip(r)
	if !ok {
		return nil
	}
	out := make([]Cell, 0, r.Width()*r.Height())
	for y := r.Top; y <= r.Bottom; y++ {
		out = append(out, s.Buffer[y][r.Left:r.Right+1]...)
	}
	return out
}
