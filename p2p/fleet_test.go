package p2p

import "testing"

func TestDefaultFleetTotal(t *testing.T) {
	f := DefaultFleet()
	if len(f) != 10 {
		t.Fatalf("default fleet has %d ships, want 10", len(f))
	}
	if got := f.TotalCells(); got != 20 {
		t.Fatalf("default fleet covers %d cells, want 20", got)
	}
}

func TestCanPlace(t *testing.T) {
	var g Grid
	ApplyPlacement(&g, 2, 2, 3, true)

	cases := []struct {
		name       string
		x, y, n    int
		horizontal bool
		want       bool
	}{
		{"top left horizontal", 0, 0, 4, true, true},
		{"top left vertical", 0, 0, 4, false, true},
		{"touches right edge", 6, 0, 4, true, true},
		{"past right edge", 7, 0, 4, true, false},
		{"touches bottom edge", 9, 6, 4, false, true},
		{"past bottom edge", 9, 7, 4, false, false},
		{"negative x", -1, 0, 1, true, false},
		{"negative y", 0, -1, 1, true, false},
		{"overlaps existing ship", 3, 0, 3, false, false},
		{"adjacent to existing ship", 2, 3, 3, true, true},
		{"zero length", 0, 0, 0, true, false},
	}
	for _, tc := range cases {
		if got := CanPlace(&g, tc.x, tc.y, tc.n, tc.horizontal); got != tc.want {
			t.Errorf("%s: CanPlace(%d,%d,%d,%v) = %v, want %v", tc.name, tc.x, tc.y, tc.n, tc.horizontal, got, tc.want)
		}
	}
}

func TestApplyPlacementMarksExactlyLengthCells(t *testing.T) {
	for length := 1; length <= 4; length++ {
		for _, horizontal := range []bool{true, false} {
			var g Grid
			if !ApplyPlacement(&g, 3, 3, length, horizontal) {
				t.Fatalf("placement of %d (horizontal=%v) failed", length, horizontal)
			}
			if n := g.Count(CellShip); n != length {
				t.Errorf("length %d horizontal=%v marked %d cells", length, horizontal, n)
			}
			for i := 0; i < length; i++ {
				x, y := 3+i, 3
				if !horizontal {
					x, y = 3, 3+i
				}
				if g.CellAt(x, y) != CellShip {
					t.Errorf("cell (%d,%d) not marked", x, y)
				}
			}

			before := g
			if ApplyPlacement(&g, 3, 3, length, horizontal) {
				t.Errorf("second placement at the same spot succeeded")
			}
			if g != before {
				t.Errorf("failed placement mutated the grid")
			}
		}
	}
}

func TestApplyPlacementOutOfBoundsLeavesGrid(t *testing.T) {
	var g Grid
	if ApplyPlacement(&g, 8, 0, 4, true) {
		t.Fatalf("placement past the edge succeeded")
	}
	if n := g.Count(CellShip); n != 0 {
		t.Fatalf("failed placement marked %d cells", n)
	}
}

func TestShipLocationsRecord(t *testing.T) {
	locs := make(ShipLocations)
	locs.record(1, 2, Ship{Length: 3, Horizontal: false})
	if locs.Len() != 3 {
		t.Fatalf("recorded %d cells, want 3", locs.Len())
	}
	for _, idx := range []int{CellIndex(1, 2), CellIndex(1, 3), CellIndex(1, 4)} {
		if !locs.Contains(idx) {
			t.Errorf("index %d missing", idx)
		}
	}
	if locs.Contains(CellIndex(2, 2)) {
		t.Errorf("unexpected index recorded")
	}
}

func TestFleetValidate(t *testing.T) {
	if err := DefaultFleet().validate(); err != nil {
		t.Fatalf("default fleet invalid: %s", err)
	}
	if err := (Fleet{}).validate(); err == nil {
		t.Errorf("empty fleet accepted")
	}
	if err := (Fleet{{Length: 0}}).validate(); err == nil {
		t.Errorf("zero length ship accepted")
	}
	if err := (Fleet{{Length: 11}}).validate(); err == nil {
		t.Errorf("ship longer than the grid accepted")
	}
}
