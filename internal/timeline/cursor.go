// Package timeline holds the navigable set of sample timestamps for one date
// and the Live/Historical mode that gates navigation.
// Like the vitals package it is pure: no feed, clock or I/O.
package timeline

import "sort"

// CursorState is the state of a Cursor.
type CursorState string

const (
	StateEmpty      CursorState = "EMPTY"
	StatePositioned CursorState = "POSITIONED"
)

// Cursor is an ordered set of HH:MM:SS labels with a position.
// The index is valid whenever the cursor is non-empty.
// Not safe for concurrent use; the dashboard controller is its only writer.
type Cursor struct {
	stamps []string
	index  int
}

// Load replaces the timeline with the given labels, sorted and de-duplicated,
// and positions the cursor on the most recent one.
// Lexicographic order is chronological because labels are zero-padded.
func (c *Cursor) Load(stamps []string) {
	sorted := make([]string, len(stamps))
	copy(sorted, stamps)
	sort.Strings(sorted)

	c.stamps = sorted[:0]
	for i, s := range sorted {
		if i > 0 && s == sorted[i-1] {
			continue
		}
		c.stamps = append(c.stamps, s)
	}
	c.index = len(c.stamps) - 1
}

// Append inserts a label (live pushes) and positions the cursor on the most
// recent label. Duplicates are ignored.
func (c *Cursor) Append(stamp string) {
	i := sort.SearchStrings(c.stamps, stamp)
	if i == len(c.stamps) || c.stamps[i] != stamp {
		c.stamps = append(c.stamps, "")
		copy(c.stamps[i+1:], c.stamps[i:])
		c.stamps[i] = stamp
	}
	c.index = len(c.stamps) - 1
}

// Seek positions the cursor on stamp if it is present.
func (c *Cursor) Seek(stamp string) bool {
	i := sort.SearchStrings(c.stamps, stamp)
	if i < len(c.stamps) && c.stamps[i] == stamp {
		c.index = i
		return true
	}
	return false
}

// Prev moves one step back. It reports false at the first label or when empty.
func (c *Cursor) Prev() bool {
	if len(c.stamps) == 0 || c.index == 0 {
		return false
	}
	c.index--
	return true
}

// Next moves one step forward. It reports false at the last label or when empty.
func (c *Cursor) Next() bool {
	if len(c.stamps) == 0 || c.index == len(c.stamps)-1 {
		return false
	}
	c.index++
	return true
}

// Reset empties the timeline.
func (c *Cursor) Reset() {
	c.stamps = nil
	c.index = -1
}

// State reports Empty or Positioned.
func (c *Cursor) State() CursorState {
	if len(c.stamps) == 0 {
		return StateEmpty
	}
	return StatePositioned
}

// Current returns the selected label.
func (c *Cursor) Current() (string, bool) {
	if len(c.stamps) == 0 {
		return "", false
	}
	return c.stamps[c.index], true
}

// Index returns the selected position, or -1 when empty.
func (c *Cursor) Index() int {
	if len(c.stamps) == 0 {
		return -1
	}
	return c.index
}

// Len returns the number of labels.
func (c *Cursor) Len() int {
	return len(c.stamps)
}

// Timestamps returns a copy of the ordered labels.
func (c *Cursor) Timestamps() []string {
	out := make([]string, len(c.stamps))
	copy(out, c.stamps)
	return out
}

// Tail returns up to n of the most recent labels, oldest first.
func (c *Cursor) Tail(n int) []string {
	if n <= 0 {
		return nil
	}
	start := len(c.stamps) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, len(c.stamps)-start)
	copy(out, c.stamps[start:])
	return out
}
