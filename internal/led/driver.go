// Package led holds the output sinks a frame of R,G,B bytes can be written to.
package led

import "errors"

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("led: driver closed")

// Driver abstracts an LED output sink.
type Driver interface {
	// Write pushes an RGB frame to hardware. len(rgb) must be 3*N.
	Write(rgb []byte) error
	// Close releases resources.
	Close() error
}
