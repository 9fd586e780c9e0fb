package led

import (
	"fmt"
	"image"
	"io"
	"sync"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"
)

// DefaultFreq drives WS281x strips at 800kHz with the 3x NRZ expansion.
const DefaultFreq = 2500 * physic.KiloHertz

var (
	hostOnce sync.Once
	hostErr  error
)

// InitHost loads the periph host drivers once per process.
func InitHost() error {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	return hostErr
}

// Drawer adapts a periph display.Drawer one pixel high to Driver.
type Drawer struct {
	mu     sync.Mutex
	d      display.Drawer
	img    *image.NRGBA
	n      int
	closer io.Closer
}

// NewDrawer wraps d for n elements. closer, if not nil, is closed after
// d is halted.
func NewDrawer(d display.Drawer, n int, closer io.Closer) *Drawer {
	img := image.NewNRGBA(image.Rect(0, 0, n, 1))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return &Drawer{d: d, img: img, n: n, closer: closer}
}

// NewNRZ opens the named SPI port ("" for the first one) and drives n
// WS281x elements through periph's nrzled encoder.
func NewNRZ(port string, n int, freqHz int) (*Drawer, error) {
	if err := InitHost(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", port, err)
	}
	d, err := NewNRZOnPort(p, n, freqHz)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	d.closer = p
	return d, nil
}

// NewNRZOnPort builds the nrzled driver on an already open port.
func NewNRZOnPort(p spi.Port, n int, freqHz int) (*Drawer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", n)
	}
	freq := DefaultFreq
	if freqHz > 0 {
		freq = physic.Frequency(freqHz) * physic.Hertz
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: n,
		Channels:  3,
		Freq:      freq,
	})
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return NewDrawer(d, n, nil), nil
}

// NewScreen prints the ring as ANSI colored blocks on stdout.
func NewScreen(n int) *Drawer {
	return NewDrawer(screen.New(n), n, nil)
}

func (d *Drawer) Write(rgb []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.d == nil {
		return ErrClosed
	}
	if len(rgb) != 3*d.n {
		return fmt.Errorf("rgb length %d does not match count %d", len(rgb), d.n)
	}
	for i := 0; i < d.n; i++ {
		copy(d.img.Pix[i*4:i*4+3], rgb[i*3:i*3+3])
	}
	if err := d.d.Draw(d.d.Bounds(), d.img, image.Point{}); err != nil {
		return fmt.Errorf("%s: %w", d.d, err)
	}
	return nil
}

// Close halts the device, leaving it dark, and releases the port.
func (d *Drawer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.d == nil {
		return nil
	}
	err := d.d.Halt()
	d.d = nil
	if d.closer != nil {
		if cerr := d.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (d *Drawer) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.d == nil {
		return "closed"
	}
	return d.d.String()
}
