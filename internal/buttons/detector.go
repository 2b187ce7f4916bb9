package buttons

import "time"

// Detector debounces the buttons and reports presses.
type Detector struct {
	debounceDuration time.Duration
	prev             lineState
	next             lineState
	live             lineState
	baselined        bool
	counts           Counts
}

// NewDetector creates a press detector with the given debounce duration.
func NewDetector(debounceDuration time.Duration) *Detector {
	return &Detector{debounceDuration: debounceDuration}
}

// Process takes a new input sample and returns the presses it completes.
// A button held down at startup becomes the baseline and is not a press;
// nothing is reported until every button has a baseline.
func (d *Detector) Process(input Input) []Press {
	lines := []struct {
		state   *lineState
		pressed bool
		button  Button
	}{
		{&d.prev, input.Prev, ButtonPrev},
		{&d.next, input.Next, ButtonNext},
		{&d.live, input.Live, ButtonLive},
	}

	var presses []Press
	for _, l := range lines {
		if d.processLine(l.state, l.pressed, input.Time) {
			presses = append(presses, Press{Timestamp: input.Time, Button: l.button})
		}
	}

	if !d.baselined {
		d.baselined = d.prev.baselined && d.next.baselined && d.live.baselined
		return nil
	}

	for _, p := range presses {
		switch p.Button {
		case ButtonPrev:
			d.counts.Prev++
		case ButtonNext:
			d.counts.Next++
		case ButtonLive:
			d.counts.Live++
		}
	}
	return presses
}

// processLine handles debounce logic for a single button. It reports true
// when the debounced level changes from released to pressed.
func (d *Detector) processLine(s *lineState, pressed bool, now time.Time) bool {
	if !s.baselined {
		if !s.hasPending || s.pending != pressed {
			// Start or restart observation
			s.pending = pressed
			s.hasPending = true
			s.pendingSince = now
			return false
		}
		if now.Sub(s.pendingSince) >= d.debounceDuration {
			s.stable = pressed
			s.baselined = true
			s.hasPending = false
		}
		return false
	}

	if pressed == s.stable {
		s.hasPending = false
		return false
	}

	if !s.hasPending || s.pending != pressed {
		s.pending = pressed
		s.hasPending = true
		s.pendingSince = now
		return false
	}

	if now.Sub(s.pendingSince) >= d.debounceDuration {
		s.stable = pressed
		s.hasPending = false
		return pressed
	}
	return false
}

// IsBaselined returns whether every button has a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// Counts returns the presses seen since startup.
func (d *Detector) Counts() Counts {
	return d.counts
}
