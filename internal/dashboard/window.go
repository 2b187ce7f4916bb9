package dashboard

// ChartPoint is one plotted value.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// RollingWindow is a fixed-capacity FIFO of chart points that keeps the most
// recent ones. Not safe for concurrent use; caller must synchronize.
type RollingWindow struct {
	buf      []ChartPoint
	capacity int
	head     int // next write position
	count    int
}

// NewRollingWindow creates a window holding at most capacity points.
// A capacity below 1 is treated as 1.
func NewRollingWindow(capacity int) *RollingWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &RollingWindow{
		buf:      make([]ChartPoint, capacity),
		capacity: capacity,
	}
}

// Push adds a point, overwriting the oldest one when full.
func (w *RollingWindow) Push(p ChartPoint) {
	w.buf[w.head] = p
	w.head = (w.head + 1) % w.capacity
	if w.count < w.capacity {
		w.count++
	}
}

// Points returns the points oldest first.
func (w *RollingWindow) Points() []ChartPoint {
	out := make([]ChartPoint, w.count)
	// Oldest item is at (head - count) mod capacity
	start := (w.head - w.count + w.capacity) % w.capacity
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(start+i)%w.capacity]
	}
	return out
}

// Reset empties the window.
func (w *RollingWindow) Reset() {
	w.head = 0
	w.count = 0
}

// Len returns the number of points held.
func (w *RollingWindow) Len() int {
	return w.count
}

// Cap returns the window capacity.
func (w *RollingWindow) Cap() int {
	return w.capacity
}
