package p2p

import "fmt"

type Ship struct {
	Length     int
	Horizontal bool
}

func (s Ship) String() string {
	orientation := "vertical"
	if s.Horizontal {
		orientation = "horizontal"
	}
	return fmt.Sprintf("%d-%s", s.Length, orientation)
}

// Fleet is placed in order. Both sides must use the same fleet so the win
// threshold agrees on each end.
type Fleet []Ship

func DefaultFleet() Fleet {
	return Fleet{
		{4, true}, {3, true}, {3, true}, {2, true}, {2, true},
		{2, true}, {1, true}, {1, true}, {1, true}, {1, true},
	}
}

func (f Fleet) TotalCells() int {
	total := 0
	for _, s := range f {
		total += s.Length
	}
	return total
}

func (f Fleet) clone() Fleet {
	c := make(Fleet, len(f))
	copy(c, f)
	return c
}

func (f Fleet) validate() error {
	if len(f) == 0 {
		return fmt.Errorf("fleet is empty")
	}
	for i, s := range f {
		if s.Length < 1 || (s.Length > GridCols && s.Length > GridRows) {
			return fmt.Errorf("ship %d has invalid length %d", i, s.Length)
		}
	}
	if f.TotalCells() > CellCount {
		return fmt.Errorf("fleet needs %d cells, grid has %d", f.TotalCells(), CellCount)
	}
	return nil
}

// ShipLocations holds the own-grid indices covered by placed ships.
type ShipLocations map[int]struct{}

func (l ShipLocations) Add(index int)           { l[index] = struct{}{} }
func (l ShipLocations) Len() int                { return len(l) }
func (l ShipLocations) Contains(index int) bool { _, ok := l[index]; return ok }

func shipCells(x, y, length int, horizontal bool) [][2]int {
	cells := make([][2]int, length)
	for i := 0; i < length; i++ {
		if horizontal {
			cells[i] = [2]int{x + i, y}
		} else {
			cells[i] = [2]int{x, y + i}
		}
	}
	return cells
}

func CanPlace(g *Grid, x, y, length int, horizontal bool) bool {
	if length < 1 {
		return false
	}
	for _, c := range shipCells(x, y, length, horizontal) {
		if !InBounds(c[0], c[1]) {
			return false
		}
		if g.CellAt(c[0], c[1]) == CellShip {
			return false
		}
	}
	return true
}

// ApplyPlacement marks the ship cells on success. On failure the grid is
// left untouched.
func ApplyPlacement(g *Grid, x, y, length int, horizontal bool) bool {
	if !CanPlace(g, x, y, length, horizontal) {
		return false
	}
	for _, c := range shipCells(x, y, length, horizontal) {
		g.SetCell(c[0], c[1], CellShip)
	}
	return true
}

func (l ShipLocations) record(x, y int, s Ship) {
	for _, c := range shipCells(x, y, s.Length, s.Horizontal) {
		l.Add(CellIndex(c[0], c[1]))
	}
}
