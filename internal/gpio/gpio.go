// Package gpio reads the bedside navigation buttons with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Buttons is one reading of the three buttons; true = pressed.
type Buttons struct {
	Prev bool
	Next bool
	Live bool
}

// Reader reads button states.
type Reader interface {
	// Read returns the logical button states.
	// The buttons are wired active-low: raw 0 = pressed.
	Read() (Buttons, error)

	// Close releases GPIO resources.
	Close() error
}

// Pins holds the BCM line offsets of the buttons.
type Pins struct {
	Prev int
	Next int
	Live int
}

// DefaultPins are the BCM lines the buttons are wired to.
var DefaultPins = Pins{Prev: 17, Next: 27, Live: 22}
