package timeline

import (
	"reflect"
	"testing"
)

func TestLoadSortsAndPositionsAtLatest(t *testing.T) {
	var c Cursor
	c.Load([]string{"09:00:00", "18:35:19", "07:12:00"})

	want := []string{"07:12:00", "09:00:00", "18:35:19"}
	if got := c.Timestamps(); !reflect.DeepEqual(got, want) {
		t.Errorf("timestamps: got %v, want %v", got, want)
	}
	if c.Index() != 2 {
		t.Errorf("index: got %d, want 2", c.Index())
	}
	if c.State() != StatePositioned {
		t.Errorf("state: got %s, want POSITIONED", c.State())
	}
}

func TestLoadDoesNotAliasInput(t *testing.T) {
	in := []string{"10:00:00", "09:00:00"}
	var c Cursor
	c.Load(in)
	if in[0] != "10:00:00" {
		t.Errorf("input slice was reordered: %v", in)
	}
}

func TestLoadDeduplicates(t *testing.T) {
	var c Cursor
	c.Load([]string{"09:00:00", "09:00:00", "08:00:00"})
	if c.Len() != 2 {
		t.Errorf("len: got %d, want 2", c.Len())
	}
}

func TestLoadEmpty(t *testing.T) {
	var c Cursor
	c.Load([]string{"09:00:00"})
	c.Load(nil)

	if c.State() != StateEmpty {
		t.Errorf("state: got %s, want EMPTY", c.State())
	}
	if c.Index() != -1 {
		t.Errorf("index: got %d, want -1", c.Index())
	}
	if _, ok := c.Current(); ok {
		t.Error("expected no current label")
	}
}

func TestPrevAtFirstIsNoOp(t *testing.T) {
	var c Cursor
	c.Load([]string{"07:00:00", "08:00:00"})

	if !c.Prev() {
		t.Fatal("expected first Prev to move")
	}
	if c.Prev() {
		t.Error("Prev at index 0 should report boundary")
	}
	if c.Index() != 0 {
		t.Errorf("index: got %d, want 0", c.Index())
	}
}

func TestNextAtLastIsNoOp(t *testing.T) {
	var c Cursor
	c.Load([]string{"07:00:00", "08:00:00"})

	if c.Next() {
		t.Error("Next at last index should report boundary")
	}
	if c.Index() != 1 {
		t.Errorf("index: got %d, want 1", c.Index())
	}
}

func TestPrevNextOnEmpty(t *testing.T) {
	var c Cursor
	c.Reset()
	if c.Prev() || c.Next() {
		t.Error("navigation on empty cursor should not move")
	}
}

func TestAppendKeepsOrderAndMovesToLatest(t *testing.T) {
	var c Cursor
	c.Load([]string{"07:00:00", "09:00:00"})
	c.Prev()

	c.Append("08:00:00")
	c.Append("10:00:00")
	c.Append("09:00:00")

	want := []string{"07:00:00", "08:00:00", "09:00:00", "10:00:00"}
	if got := c.Timestamps(); !reflect.DeepEqual(got, want) {
		t.Errorf("timestamps: got %v, want %v", got, want)
	}
	if label, _ := c.Current(); label != "10:00:00" {
		t.Errorf("current: got %q, want 10:00:00", label)
	}
}

func TestSeek(t *testing.T) {
	var c Cursor
	c.Load([]string{"07:00:00", "08:00:00", "09:00:00"})

	if !c.Seek("08:00:00") {
		t.Fatal("expected seek to succeed")
	}
	if c.Index() != 1 {
		t.Errorf("index: got %d, want 1", c.Index())
	}
	if c.Seek("08:30:00") {
		t.Error("seek to missing label should fail")
	}
	if c.Index() != 1 {
		t.Errorf("failed seek moved index to %d", c.Index())
	}
}

func TestTail(t *testing.T) {
	var c Cursor
	c.Load([]string{"01:00:00", "02:00:00", "03:00:00"})

	if got := c.Tail(2); !reflect.DeepEqual(got, []string{"02:00:00", "03:00:00"}) {
		t.Errorf("tail 2: got %v", got)
	}
	if got := c.Tail(10); len(got) != 3 {
		t.Errorf("tail 10: got %v", got)
	}
	if got := c.Tail(0); got != nil {
		t.Errorf("tail 0: got %v", got)
	}
}
