// Package buttons turns raw bedside button readings into debounced presses.
// This package has NO external dependencies (no GPIO, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package buttons

import "time"

// Button identifies one bedside button.
type Button string

const (
	ButtonPrev Button = "PREV"
	ButtonNext Button = "NEXT"
	ButtonLive Button = "LIVE"
)

// Press is a debounced press of one button.
type Press struct {
	Timestamp time.Time
	Button    Button
}

// Input is a single sample of logical button states (true = pressed).
type Input struct {
	Prev bool
	Next bool
	Live bool
	Time time.Time
}

// Counts tracks the number of presses per button since startup.
type Counts struct {
	Prev int
	Next int
	Live int
}

// lineState tracks debounce state for a single button.
type lineState struct {
	stable       bool // current debounced level (true = pressed)
	pending      bool
	hasPending   bool
	pendingSince time.Time
	baselined    bool
}
