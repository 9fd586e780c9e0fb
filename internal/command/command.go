// Package command reads the host line protocol that feeds rings their
// telemetry. One command per line, raw values 0..255:
//
//	U <id> <heat> <load> <rpm>   set sensor targets
//	B <id> <brightness>          set output brightness
//	I <id> <0|1>                 toggle the idle hue sweep
//
// Every non-blank line gets one reply: "OK <cmd> <id>" or "ERR <reason>".
package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const RawMax = 255

var (
	ErrEmpty    = errors.New("empty command")
	ErrUnknown  = errors.New("unknown command")
	ErrArgs     = errors.New("wrong argument count")
	ErrValue    = errors.New("value out of range")
	ErrNotFound = errors.New("unknown ring")
)

// Target is what a command acts on. *ring.Ring satisfies it.
type Target interface {
	SetSensors(heat, load, rpm float64)
	SetBrightness(b float64)
	SetIdleDynamic(on bool)
}

// Lookup finds the target for a ring id.
type Lookup func(id int) (Target, bool)

// Handler applies commands to the rings found by Lookup.
type Handler struct {
	Lookup Lookup
	Log    zerolog.Logger
	// Touched, if set, is called after every applied command.
	Touched func(id int)
}

// Command is one parsed line. Values are normalized to [0,1].
type Command struct {
	Op     byte
	ID     int
	Values []float64
}

var arity = map[byte]int{'U': 3, 'B': 1, 'I': 1}

// Parse reads one line without applying it.
func Parse(line string) (Command, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return Command{}, ErrEmpty
	}
	if len(f[0]) != 1 {
		return Command{}, fmt.Errorf("%w %q", ErrUnknown, f[0])
	}
	op := f[0][0]
	if op >= 'a' && op <= 'z' {
		op -= 'a' - 'A'
	}
	want, ok := arity[op]
	if !ok {
		return Command{}, fmt.Errorf("%w %q", ErrUnknown, f[0])
	}
	if len(f) != want+2 {
		return Command{}, fmt.Errorf("%c: %w: got %d, want %d", op, ErrArgs, len(f)-2, want)
	}
	id, err := strconv.Atoi(f[1])
	if err != nil {
		return Command{}, fmt.Errorf("%c: bad id %q", op, f[1])
	}

	c := Command{Op: op, ID: id, Values: make([]float64, want)}
	for i, s := range f[2:] {
		v, err := strconv.Atoi(s)
		if err != nil {
			return Command{}, fmt.Errorf("%c: bad value %q", op, s)
		}
		if v < 0 || v > RawMax || (op == 'I' && v > 1) {
			return Command{}, fmt.Errorf("%c: %w: %d", op, ErrValue, v)
		}
		if op == 'I' {
			c.Values[i] = float64(v)
		} else {
			c.Values[i] = float64(v) / RawMax
		}
	}
	return c, nil
}

// Apply runs c against its ring.
func (h *Handler) Apply(c Command) error {
	t, ok := h.Lookup(c.ID)
	if !ok {
		return fmt.Errorf("%w %d", ErrNotFound, c.ID)
	}
	switch c.Op {
	case 'U':
		t.SetSensors(c.Values[0], c.Values[1], c.Values[2])
	case 'B':
		t.SetBrightness(c.Values[0])
	case 'I':
		t.SetIdleDynamic(c.Values[0] != 0)
	default:
		return fmt.Errorf("%w %q", ErrUnknown, c.Op)
	}
	if h.Touched != nil {
		h.Touched(c.ID)
	}
	return nil
}

// Handle parses and applies one line and returns its reply, without newline.
func (h *Handler) Handle(line string) string {
	c, err := Parse(line)
	if err == nil {
		err = h.Apply(c)
	}
	if err != nil {
		h.Log.Warn().Err(err).Str("line", strings.TrimSpace(line)).Msg("command rejected")
		return "ERR " + err.Error()
	}
	h.Log.Debug().Str("cmd", string(c.Op)).Int("ring", c.ID).Floats64("values", c.Values).Msg("command")
	return fmt.Sprintf("OK %c %d", c.Op, c.ID)
}

// Serve handles lines from r until EOF, replying on w. Blank lines are
// skipped without a reply. Command errors never stop it; only read and
// write errors are returned.
func (h *Handler) Serve(r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := io.WriteString(w, h.Handle(line)+"\n"); err != nil {
			return fmt.Errorf("reply: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}
	return nil
}
