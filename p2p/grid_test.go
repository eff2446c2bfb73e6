package p2p

import (
	"strings"
	"testing"
)

func TestGridStartsEmpty(t *testing.T) {
	var g Grid
	for y := 0; y < GridRows; y++ {
		for x := 0; x < GridCols; x++ {
			if c := g.CellAt(x, y); c != CellEmpty {
				t.Errorf("cell (%d,%d) = %s, want EMPTY", x, y, c)
			}
		}
	}
}

func TestCellIndexIsRowMajor(t *testing.T) {
	cases := []struct {
		x, y, want int
	}{
		{0, 0, 0},
		{9, 0, 9},
		{0, 1, 10},
		{5, 5, 55},
		{9, 9, 99},
	}
	for _, tc := range cases {
		if got := CellIndex(tc.x, tc.y); got != tc.want {
			t.Errorf("CellIndex(%d,%d) = %d, want %d", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestSetCellIgnoresOutOfRange(t *testing.T) {
	var g Grid
	g.SetCell(-1, 0, CellShip)
	g.SetCell(0, GridRows, CellShip)
	g.SetCell(GridCols, 3, CellShip)
	if n := g.Count(CellShip); n != 0 {
		t.Fatalf("out of range writes changed %d cells", n)
	}
	if c := g.CellAt(42, 42); c != CellEmpty {
		t.Errorf("out of range read = %s, want EMPTY", c)
	}

	g.SetCell(3, 4, CellHit)
	if c := g.CellAt(3, 4); c != CellHit {
		t.Errorf("cell (3,4) = %s, want HIT", c)
	}
	if g[CellIndex(3, 4)] != CellHit {
		t.Errorf("SetCell did not write the row-major index")
	}
}

func TestGridReset(t *testing.T) {
	var g Grid
	g.SetCell(1, 1, CellShip)
	g.Reset(CellMiss)
	if n := g.Count(CellMiss); n != CellCount {
		t.Fatalf("after Reset(MISS) %d cells are MISS, want %d", n, CellCount)
	}
	g.Reset(CellEmpty)
	if n := g.Count(CellEmpty); n != CellCount {
		t.Fatalf("after Reset(EMPTY) %d cells are EMPTY, want %d", n, CellCount)
	}
}

func TestGridRowsAndString(t *testing.T) {
	var g Grid
	g.SetCell(0, 0, CellShip)
	g.SetCell(1, 0, CellHit)
	g.SetCell(2, 0, CellMiss)

	rows := g.Rows()
	if len(rows) != GridRows {
		t.Fatalf("Rows() returned %d rows, want %d", len(rows), GridRows)
	}
	if rows[0] != "SXO~~~~~~~" {
		t.Errorf("row 0 = %q", rows[0])
	}
	if rows[1] != strings.Repeat("~", GridCols) {
		t.Errorf("row 1 = %q", rows[1])
	}
	lines := strings.Split(strings.TrimRight(g.String(), "\n"), "\n")
	if len(lines) != GridRows+1 {
		t.Fatalf("String() has %d lines, want %d", len(lines), GridRows+1)
	}
	fields := strings.Fields(lines[1])
	if len(fields) != GridCols+1 || fields[0] != "0" || fields[1] != "S" || fields[2] != "X" || fields[3] != "O" {
		t.Errorf("first board line = %q", lines[1])
	}
}

func TestGridDigest(t *testing.T) {
	var a, b Grid
	if a.Digest() != b.Digest() {
		t.Fatalf("equal grids have different digests")
	}
	b.SetCell(7, 7, CellShip)
	if a.Digest() == b.Digest() {
		t.Fatalf("different grids share a digest")
	}
	if len(a.Digest()) != 16 {
		t.Errorf("digest %q should be 16 hex chars", a.Digest())
	}
}

func TestGridReadsOnReturnedValues(t *testing.T) {
	s := newTestSession(t, RoleHost, Fleet{{Length: 2, Horizontal: true}})
	s.OnPeerConnected()
	if _, err := s.AttemptPlacement(1, 1); err != nil {
		t.Fatalf("placement: %s", err)
	}
	if c := s.OwnGrid().CellAt(2, 1); c != CellShip {
		t.Errorf("own (2,1) = %s, want SHIP", c)
	}
	if n := s.OwnGrid().Count(CellShip); n != 2 {
		t.Errorf("own grid has %d ship cells, want 2", n)
	}
	if n := s.OpponentGrid().Count(CellEmpty); n != CellCount {
		t.Errorf("opponent view has %d empty cells, want %d", n, CellCount)
	}
	if s.OwnGrid().Digest() == s.OpponentGrid().Digest() {
		t.Errorf("different grids share a digest")
	}
	if rows := s.OwnGrid().Rows(); rows[1][1:3] != "SS" {
		t.Errorf("row 1 = %q", rows[1])
	}
}
