package p2p

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"lukechampine.com/blake3"
)

const (
	GridCols  = 10
	GridRows  = 10
	CellCount = GridCols * GridRows
)

type Cell uint8

const (
	CellEmpty Cell = iota
	CellShip
	CellHit
	CellMiss
)

func (c Cell) String() string {
	switch c {
	case CellEmpty:
		return "EMPTY"
	case CellShip:
		return "SHIP"
	case CellHit:
		return "HIT"
	case CellMiss:
		return "MISS"
	default:
		return "INVALID"
	}
}

func (c Cell) valid() bool { return c <= CellMiss }

// Resolved reports whether an attack has already landed on the cell.
func (c Cell) Resolved() bool { return c == CellHit || c == CellMiss }

func (c Cell) symbol() byte {
	switch c {
	case CellShip:
		return 'S'
	case CellHit:
		return 'X'
	case CellMiss:
		return 'O'
	default:
		return '~'
	}
}

// Grid is a row-major board. Index arithmetic goes through CellIndex.
type Grid [CellCount]Cell

func CellIndex(x, y int) int { return y*GridCols + x }

func InBounds(x, y int) bool {
	return x >= 0 && x < GridCols && y >= 0 && y < GridRows
}

func (g Grid) CellAt(x, y int) Cell {
	if !InBounds(x, y) {
		return CellEmpty
	}
	return g[CellIndex(x, y)]
}

// SetCell ignores coordinates outside the board.
func (g *Grid) SetCell(x, y int, c Cell) {
	if !InBounds(x, y) {
		return
	}
	g[CellIndex(x, y)] = c
}

func (g *Grid) Reset(c Cell) {
	for i := range g {
		g[i] = c
	}
}

func (g Grid) Count(c Cell) int {
	n := 0
	for _, cell := range g {
		if cell == c {
			n++
		}
	}
	return n
}

func (g Grid) Bytes() []byte {
	b := make([]byte, CellCount)
	for i, c := range g {
		b[i] = byte(c)
	}
	return b
}

// Digest is a short blake3 fingerprint of the grid contents.
func (g Grid) Digest() string {
	sum := blake3.Sum256(g.Bytes())
	return hex.EncodeToString(sum[:8])
}

func (g Grid) Rows() []string {
	rows := make([]string, GridRows)
	var sb strings.Builder
	for y := 0; y < GridRows; y++ {
		sb.Reset()
		for x := 0; x < GridCols; x++ {
			sb.WriteByte(g[CellIndex(x, y)].symbol())
		}
		rows[y] = sb.String()
	}
	return rows
}

func (g Grid) String() string {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 3, 0, 1, ' ', 0)

	fmt.Fprint(tw, "\t")
	for x := 0; x < GridCols; x++ {
		fmt.Fprint(tw, strconv.Itoa(x)+"\t")
	}
	fmt.Fprint(tw, "\n")
	for y := 0; y < GridRows; y++ {
		fmt.Fprint(tw, strconv.Itoa(y)+"\t")
		for x := 0; x < GridCols; x++ {
			fmt.Fprintf(tw, "%c\t", g[CellIndex(x, y)].symbol())
		}
		fmt.Fprint(tw, "\n")
	}
	tw.Flush()
	return buf.String()
}
