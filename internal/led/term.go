package led

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Term draws each ring as an ellipse of cells on a terminal. Terminal cells
// are about twice as tall as wide, so the x radius is doubled.
type Term struct {
	mu    sync.Mutex
	s     tcell.Screen
	cells []image.Point
}

// OpenTerm takes over the controlling terminal.
func OpenTerm(sizes []int) (*Term, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("terminal: %w", err)
	}
	return NewTerm(s, sizes)
}

// NewTerm initializes s and lays out one ring per entry in sizes, left to
// right, in element order.
func NewTerm(s tcell.Screen, sizes []int) (*Term, error) {
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("terminal init: %w", err)
	}
	s.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack))
	s.Clear()
	return &Term{s: s, cells: layoutRings(sizes)}, nil
}

func layoutRings(sizes []int) []image.Point {
	var cells []image.Point
	left := 0
	for _, n := range sizes {
		ry := max(1, (n+3)/4)
		rx := 2 * ry
		cx, cy := left+rx, ry
		for i := 0; i < n; i++ {
			// element 0 at twelve o'clock, clockwise
			a := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
			cells = append(cells, image.Point{
				X: cx + int(math.Round(math.Cos(a)*float64(rx))),
				Y: cy + int(math.Round(math.Sin(a)*float64(ry))),
			})
		}
		left += 2*rx + 3
	}
	return cells
}

// Cell returns the screen position of element i.
func (t *Term) Cell(i int) image.Point { return t.cells[i] }

func (t *Term) Write(rgb []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.s == nil {
		return ErrClosed
	}
	if len(rgb) != 3*len(t.cells) {
		return fmt.Errorf("rgb length %d does not match count %d", len(rgb), len(t.cells))
	}
	for i, p := range t.cells {
		c := tcell.NewRGBColor(int32(rgb[i*3]), int32(rgb[i*3+1]), int32(rgb[i*3+2]))
		t.s.SetContent(p.X, p.Y, '●', nil, tcell.StyleDefault.Foreground(c).Background(tcell.ColorBlack))
	}
	t.s.Show()
	return nil
}

// WatchQuit calls quit when Escape, Ctrl-C or q is pressed. The terminal
// is in raw mode, so these never arrive as signals. The watcher exits when
// the screen is closed.
func (t *Term) WatchQuit(quit func()) {
	s := t.s
	go func() {
		for {
			switch ev := s.PollEvent().(type) {
			case nil:
				return
			case *tcell.EventResize:
				s.Sync()
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					quit()
				}
			}
		}
	}()
}

func (t *Term) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.s != nil {
		t.s.Fini()
		t.s = nil
	}
	return nil
}
