package timeline

// Mode is the dashboard mode.
type Mode string

const (
	ModeLive       Mode = "LIVE"
	ModeHistorical Mode = "HISTORICAL"
)

// NavResult reports the outcome of a Prev or Next request.
type NavResult string

const (
	NavMoved      NavResult = "MOVED"
	NavBoundary   NavResult = "BOUNDARY"   // already at the first/last label
	NavSuppressed NavResult = "SUPPRESSED" // navigation is inert in Live mode
	NavEmpty      NavResult = "EMPTY"      // no labels loaded
)

// Position is a read-only view of the navigator for display.
type Position struct {
	Mode    Mode
	Date    string
	Label   string
	Index   int
	Length  int
	CanPrev bool
	CanNext bool
}

// Navigator combines the mode, the selected date and the cursor.
// Live behaves as a third pseudo-state that suppresses Prev and Next
// regardless of the cursor.
type Navigator struct {
	mode   Mode
	date   string
	cursor Cursor
}

// NewNavigator creates a navigator in Live mode for date with an empty cursor.
func NewNavigator(date string) *Navigator {
	n := &Navigator{mode: ModeLive, date: date}
	n.cursor.Reset()
	return n
}

// Enter switches to mode on date and discards the cursor.
func (n *Navigator) Enter(mode Mode, date string) {
	n.mode = mode
	n.date = date
	n.cursor.Reset()
}

// Mode returns the current mode.
func (n *Navigator) Mode() Mode {
	return n.mode
}

// Date returns the selected date key.
func (n *Navigator) Date() string {
	return n.date
}

// Cursor exposes the underlying cursor for loading and appending.
func (n *Navigator) Cursor() *Cursor {
	return &n.cursor
}

// Prev moves the cursor back unless in Live mode.
func (n *Navigator) Prev() NavResult {
	return n.step(n.cursor.Prev)
}

// Next moves the cursor forward unless in Live mode.
func (n *Navigator) Next() NavResult {
	return n.step(n.cursor.Next)
}

func (n *Navigator) step(move func() bool) NavResult {
	if n.mode == ModeLive {
		return NavSuppressed
	}
	if n.cursor.State() == StateEmpty {
		return NavEmpty
	}
	if !move() {
		return NavBoundary
	}
	return NavMoved
}

// Position returns the display view of the navigator.
func (n *Navigator) Position() Position {
	label, _ := n.cursor.Current()
	idx := n.cursor.Index()
	historical := n.mode == ModeHistorical
	return Position{
		Mode:    n.mode,
		Date:    n.date,
		Label:   label,
		Index:   idx,
		Length:  n.cursor.Len(),
		CanPrev: historical && idx > 0,
		CanNext: historical && idx >= 0 && idx < n.cursor.Len()-1,
	}
}
