package led

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Sim is a headless driver. It keeps the last frame and logs a compact
// summary every Every frames at debug level.
type Sim struct {
	Every int

	mu     sync.Mutex
	log    zerolog.Logger
	n      int
	frames uint64
	last   []byte
	closed bool
}

// NewSim returns a sim driver for n elements.
func NewSim(n int, log zerolog.Logger) *Sim {
	return &Sim{Every: 60, log: log, n: n, last: make([]byte, 3*n)}
}

func (s *Sim) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if len(rgb) != 3*s.n {
		return fmt.Errorf("rgb length %d does not match count %d", len(rgb), s.n)
	}
	copy(s.last, rgb)
	s.frames++

	if s.Every > 0 && s.frames%uint64(s.Every) == 0 && s.n > 0 {
		var r, g, b int
		for i := 0; i < s.n; i++ {
			r += int(rgb[i*3])
			g += int(rgb[i*3+1])
			b += int(rgb[i*3+2])
		}
		s.log.Debug().
			Uint64("frame", s.frames).
			Str("avg", fmt.Sprintf("(%d,%d,%d)", r/s.n, g/s.n, b/s.n)).
			Str("first", fmt.Sprintf("(%d,%d,%d)", rgb[0], rgb[1], rgb[2])).
			Msg("sim frame")
	}
	return nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Frames returns the number of frames written.
func (s *Sim) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Last returns a copy of the last frame written.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.last...)
}
