package led

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/spi/spitest"
)

// recordDrawer is a display.Drawer that keeps the last image drawn.
type recordDrawer struct {
	n      int
	last   *image.NRGBA
	draws  int
	halted bool
	err    error
}

func (r *recordDrawer) String() string          { return "record" }
func (r *recordDrawer) Halt() error             { r.halted = true; return nil }
func (r *recordDrawer) ColorModel() color.Model { return color.NRGBAModel }
func (r *recordDrawer) Bounds() image.Rectangle { return image.Rect(0, 0, r.n, 1) }

func (r *recordDrawer) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	r.draws++
	img := image.NewNRGBA(dst)
	for x := dst.Min.X; x < dst.Max.X; x++ {
		img.Set(x, 0, src.At(x+sp.X, sp.Y))
	}
	r.last = img
	return r.err
}

type closeCounter int

func (c *closeCounter) Close() error { *c++; return nil }

func TestSim(t *testing.T) {
	var logs bytes.Buffer
	s := NewSim(2, zerolog.New(&logs).Level(zerolog.DebugLevel))
	s.Every = 2

	require.NoError(t, s.Write([]byte{1, 2, 3, 4, 5, 6}))
	assert.Empty(t, logs.String())
	require.NoError(t, s.Write([]byte{9, 9, 9, 0, 0, 0}))
	assert.Contains(t, logs.String(), `"frame":2`)

	assert.Equal(t, uint64(2), s.Frames())
	assert.Equal(t, []byte{9, 9, 9, 0, 0, 0}, s.Last())
	assert.Error(t, s.Write([]byte{1, 2, 3}))

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Write(make([]byte, 6)), ErrClosed)
}

func TestDrawer(t *testing.T) {
	rec := &recordDrawer{n: 3}
	var closed closeCounter
	d := NewDrawer(rec, 3, &closed)

	require.NoError(t, d.Write([]byte{255, 0, 0, 0, 128, 0, 1, 2, 3}))
	require.Equal(t, 1, rec.draws)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, rec.last.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{G: 128, A: 255}, rec.last.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 255}, rec.last.NRGBAAt(2, 0))
	assert.Equal(t, "record", d.String())

	assert.Error(t, d.Write(make([]byte, 4)), "short frame")
	assert.Equal(t, 1, rec.draws)

	rec.err = errors.New("bus fault")
	assert.ErrorContains(t, d.Write(make([]byte, 9)), "bus fault")

	require.NoError(t, d.Close())
	assert.True(t, rec.halted)
	assert.Equal(t, closeCounter(1), closed)
	assert.ErrorIs(t, d.Write(make([]byte, 9)), ErrClosed)
	require.NoError(t, d.Close(), "second close is a no-op")
	assert.Equal(t, closeCounter(1), closed)
}

func TestNRZOverRecordedSPI(t *testing.T) {
	buf := bytes.Buffer{}
	d, err := NewNRZOnPort(spitest.NewRecordRaw(&buf), 4, 0)
	require.NoError(t, err)
	assert.Equal(t, "nrzled{recordraw}", d.String())

	start := buf.Len()
	require.NoError(t, d.Write(bytes.Repeat([]byte{0x10, 0x20, 0x30}, 4)))
	frame := buf.Len() - start
	assert.Greater(t, frame, 4*3, "NRZ expands every bit")

	require.NoError(t, d.Write(make([]byte, 12)))
	assert.Equal(t, start+2*frame, buf.Len(), "fixed size frames")
	require.NoError(t, d.Close())

	_, err = NewNRZOnPort(spitest.NewRecordRaw(&buf), 0, 0)
	assert.Error(t, err)
}

func newSimTerm(t *testing.T, sizes ...int) (*Term, tcell.SimulationScreen) {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	term, err := NewTerm(s, sizes)
	require.NoError(t, err)
	t.Cleanup(func() { _ = term.Close() })
	return term, s
}

func TestTermLayout(t *testing.T) {
	term, s := newSimTerm(t, 24, 12, 1)
	w, h := s.Size()

	seen := map[image.Point]bool{}
	for i := 0; i < 24+12+1; i++ {
		p := term.Cell(i)
		assert.True(t, p.In(image.Rect(0, 0, w, h)), "element %d at %v", i, p)
		assert.False(t, seen[p], "element %d overlaps", i)
		seen[p] = true
	}
	assert.Less(t, term.Cell(0).X, term.Cell(24).X, "rings laid out left to right")
	assert.Equal(t, 0, term.Cell(0).Y, "element 0 at the top")
}

func TestTermWrite(t *testing.T) {
	term, s := newSimTerm(t, 8, 4)
	frame := make([]byte, 12*3)
	frame[0], frame[1], frame[2] = 10, 20, 30
	frame[8*3] = 255
	require.NoError(t, term.Write(frame))

	check := func(i int, r, g, b int32) {
		p := term.Cell(i)
		ch, _, style, _ := s.GetContent(p.X, p.Y)
		assert.Equal(t, '●', ch)
		fg, _, _ := style.Decompose()
		gr, gg, gb := fg.RGB()
		assert.Equal(t, []int32{r, g, b}, []int32{gr, gg, gb}, "element %d", i)
	}
	check(0, 10, 20, 30)
	check(8, 255, 0, 0)
	check(3, 0, 0, 0)

	assert.Error(t, term.Write(make([]byte, 3)))
}

func TestTermWatchQuit(t *testing.T) {
	term, s := newSimTerm(t, 4)
	quit := make(chan struct{}, 1)
	term.WatchQuit(func() { quit <- struct{}{} })

	s.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	s.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	select {
	case <-quit:
	case <-time.After(2 * time.Second):
		t.Fatal("escape did not quit")
	}
	require.NoError(t, term.Close())
	assert.ErrorIs(t, term.Write(make([]byte, 12)), ErrClosed)
}
