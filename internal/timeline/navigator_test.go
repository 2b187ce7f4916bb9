package timeline

import "testing"

func TestNewNavigatorStartsLive(t *testing.T) {
	n := NewNavigator("2026-01-19")
	if n.Mode() != ModeLive {
		t.Errorf("mode: got %s, want LIVE", n.Mode())
	}
	if n.Date() != "2026-01-19" {
		t.Errorf("date: got %q", n.Date())
	}
	if n.Cursor().State() != StateEmpty {
		t.Errorf("cursor: got %s, want EMPTY", n.Cursor().State())
	}
}

func TestLiveSuppressesNavigation(t *testing.T) {
	n := NewNavigator("2026-01-19")
	n.Cursor().Load([]string{"07:00:00", "08:00:00", "09:00:00"})
	n.Cursor().Seek("08:00:00")

	if got := n.Prev(); got != NavSuppressed {
		t.Errorf("Prev: got %s, want SUPPRESSED", got)
	}
	if got := n.Next(); got != NavSuppressed {
		t.Errorf("Next: got %s, want SUPPRESSED", got)
	}
	if n.Cursor().Index() != 1 {
		t.Errorf("index moved to %d while live", n.Cursor().Index())
	}

	pos := n.Position()
	if pos.CanPrev || pos.CanNext {
		t.Errorf("controls should be inert while live: %+v", pos)
	}
}

func TestHistoricalNavigation(t *testing.T) {
	n := NewNavigator("2026-01-19")
	n.Enter(ModeHistorical, "2026-01-18")
	n.Cursor().Load([]string{"07:00:00", "08:00:00"})

	if got := n.Next(); got != NavBoundary {
		t.Errorf("Next at last: got %s, want BOUNDARY", got)
	}
	if got := n.Prev(); got != NavMoved {
		t.Errorf("Prev: got %s, want MOVED", got)
	}
	if got := n.Prev(); got != NavBoundary {
		t.Errorf("Prev at first: got %s, want BOUNDARY", got)
	}

	pos := n.Position()
	if pos.Label != "07:00:00" || pos.Index != 0 || pos.Length != 2 {
		t.Errorf("position: %+v", pos)
	}
	if pos.CanPrev {
		t.Error("CanPrev should be false at index 0")
	}
	if !pos.CanNext {
		t.Error("CanNext should be true at index 0 of 2")
	}
	if pos.Date != "2026-01-18" || pos.Mode != ModeHistorical {
		t.Errorf("position: %+v", pos)
	}
}

func TestHistoricalEmpty(t *testing.T) {
	n := NewNavigator("2026-01-19")
	n.Enter(ModeHistorical, "2026-01-01")

	if got := n.Prev(); got != NavEmpty {
		t.Errorf("Prev: got %s, want EMPTY", got)
	}
	pos := n.Position()
	if pos.Index != -1 || pos.CanPrev || pos.CanNext {
		t.Errorf("position: %+v", pos)
	}
}

func TestEnterDiscardsCursor(t *testing.T) {
	n := NewNavigator("2026-01-19")
	n.Enter(ModeHistorical, "2026-01-18")
	n.Cursor().Load([]string{"07:00:00"})

	n.Enter(ModeLive, "2026-01-19")
	if n.Cursor().Len() != 0 {
		t.Errorf("cursor not discarded: len %d", n.Cursor().Len())
	}
}
