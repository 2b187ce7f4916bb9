//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads buttons from actual hardware using the Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line // prev, next, live
}

// NewRealReader requests the button lines on chip (e.g. "gpiochip0").
func NewRealReader(chip string, pins Pins) (*RealReader, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}

	r := &RealReader{chip: c}
	named := []struct {
		name   string
		offset int
	}{
		{"prev", pins.Prev},
		{"next", pins.Next},
		{"live", pins.Live},
	}
	for _, p := range named {
		// Buttons short the line to ground; the internal pull-up holds it high otherwise.
		line, err := c.RequestLine(p.offset, gpiocdev.AsInput, gpiocdev.WithPullUp,
			gpiocdev.WithConsumer("vitals-"+p.name))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", p.name, p.offset, err)
		}
		r.lines = append(r.lines, line)
	}
	return r, nil
}

// Read returns the logical button states. Raw 0 = pressed.
func (r *RealReader) Read() (Buttons, error) {
	var pressed [3]bool
	for i, line := range r.lines {
		v, err := line.Value()
		if err != nil {
			return Buttons{}, fmt.Errorf("read line %d: %w", line.Offset(), err)
		}
		pressed[i] = v == 0
	}
	return Buttons{Prev: pressed[0], Next: pressed[1], Live: pressed[2]}, nil
}

// Close releases the lines and the chip.
func (r *RealReader) Close() error {
	var errs []error
	for _, line := range r.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", line.Offset(), err))
		}
	}
	r.lines = nil
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
