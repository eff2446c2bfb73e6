package p2p

import (
	"encoding"
	"encoding/binary"
	"fmt"
)

type MessageKind uint8

const (
	KindCellRequest MessageKind = iota + 1
	KindCellUpdate
	KindGridSnapshot
	KindFinishedPreparing
	KindTurnUpdate
)

func (k MessageKind) String() string {
	switch k {
	case KindCellRequest:
		return "CELL-REQUEST"
	case KindCellUpdate:
		return "CELL-UPDATE"
	case KindGridSnapshot:
		return "GRID-SNAPSHOT"
	case KindFinishedPreparing:
		return "FINISHED-PREPARING"
	case KindTurnUpdate:
		return "TURN-UPDATE"
	default:
		return "INVALID"
	}
}

// Every layout starts with the kind byte. u16 fields are little endian.
const (
	cellRequestSize       = 1 + 2 + 2
	cellUpdateSize        = 1 + 2 + 2 + 1
	gridSnapshotSize      = 1 + 2 + 2 + CellCount
	finishedPreparingSize = 1 + 1
	turnUpdateSize        = 1 + 1
)

func (k MessageKind) wireSize() (int, bool) {
	switch k {
	case KindCellRequest:
		return cellRequestSize, true
	case KindCellUpdate:
		return cellUpdateSize, true
	case KindGridSnapshot:
		return gridSnapshotSize, true
	case KindFinishedPreparing:
		return finishedPreparingSize, true
	case KindTurnUpdate:
		return turnUpdateSize, true
	default:
		return 0, false
	}
}

var byteOrder = binary.LittleEndian

type Message interface {
	encoding.BinaryMarshaler
	Kind() MessageKind
}

type CellRequest struct {
	X, Y uint16
}

type CellUpdate struct {
	X, Y   uint16
	Result Cell
}

type GridSnapshot struct {
	Width, Height uint16
	Cells         Grid
}

type FinishedPreparing struct {
	Finished uint8
}

type TurnUpdate struct {
	Turn Turn
}

var (
	_ Message = CellRequest{}
	_ Message = CellUpdate{}
	_ Message = GridSnapshot{}
	_ Message = FinishedPreparing{}
	_ Message = TurnUpdate{}
)

func (CellRequest) Kind() MessageKind       { return KindCellRequest }
func (CellUpdate) Kind() MessageKind        { return KindCellUpdate }
func (GridSnapshot) Kind() MessageKind      { return KindGridSnapshot }
func (FinishedPreparing) Kind() MessageKind { return KindFinishedPreparing }
func (TurnUpdate) Kind() MessageKind        { return KindTurnUpdate }

func (m CellRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, cellRequestSize)
	b[0] = byte(KindCellRequest)
	byteOrder.PutUint16(b[1:3], m.X)
	byteOrder.PutUint16(b[3:5], m.Y)
	return b, nil
}

func (m CellUpdate) MarshalBinary() ([]byte, error) {
	if m.Result != CellHit && m.Result != CellMiss {
		return nil, fmt.Errorf("cell update result must be HIT or MISS, got %s", m.Result)
	}
	b := make([]byte, cellUpdateSize)
	b[0] = byte(KindCellUpdate)
	byteOrder.PutUint16(b[1:3], m.X)
	byteOrder.PutUint16(b[3:5], m.Y)
	b[5] = byte(m.Result)
	return b, nil
}

func (m GridSnapshot) MarshalBinary() ([]byte, error) {
	if m.Width != GridCols || m.Height != GridRows {
		return nil, fmt.Errorf("grid snapshot must be %dx%d, got %dx%d", GridCols, GridRows, m.Width, m.Height)
	}
	b := make([]byte, gridSnapshotSize)
	b[0] = byte(KindGridSnapshot)
	byteOrder.PutUint16(b[1:3], m.Width)
	byteOrder.PutUint16(b[3:5], m.Height)
	copy(b[5:], m.Cells.Bytes())
	return b, nil
}

func (m FinishedPreparing) MarshalBinary() ([]byte, error) {
	return []byte{byte(KindFinishedPreparing), m.Finished}, nil
}

func (m TurnUpdate) MarshalBinary() ([]byte, error) {
	w, err := m.Turn.wire()
	if err != nil {
		return nil, err
	}
	return []byte{byte(KindTurnUpdate), w}, nil
}

func NewGridSnapshot(g *Grid) GridSnapshot {
	return GridSnapshot{Width: GridCols, Height: GridRows, Cells: *g}
}

func Encode(m Message) ([]byte, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	return b, nil
}

// Decode validates the discriminator and the exact frame length before
// touching the payload.
func Decode(data []byte) (Message, error) {
	if len(data) < 1 {
		return nil, ErrEmptyMessage
	}
	kind := MessageKind(data[0])
	size, ok := kind.wireSize()
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownMessage, data[0])
	}
	if len(data) != size {
		return nil, fmt.Errorf("%w: %s wants %d bytes, got %d", ErrMalformedMessage, kind, size, len(data))
	}

	switch kind {
	case KindCellRequest:
		return CellRequest{
			X: byteOrder.Uint16(data[1:3]),
			Y: byteOrder.Uint16(data[3:5]),
		}, nil
	case KindCellUpdate:
		result := Cell(data[5])
		if result != CellHit && result != CellMiss {
			return nil, fmt.Errorf("%w: cell update result %d", ErrMalformedMessage, data[5])
		}
		return CellUpdate{
			X:      byteOrder.Uint16(data[1:3]),
			Y:      byteOrder.Uint16(data[3:5]),
			Result: result,
		}, nil
	case KindGridSnapshot:
		msg := GridSnapshot{
			Width:  byteOrder.Uint16(data[1:3]),
			Height: byteOrder.Uint16(data[3:5]),
		}
		if msg.Width != GridCols || msg.Height != GridRows {
			return nil, fmt.Errorf("%w: grid snapshot %dx%d", ErrMalformedMessage, msg.Width, msg.Height)
		}
		for i, b := range data[5:] {
			c := Cell(b)
			if !c.valid() {
				return nil, fmt.Errorf("%w: grid snapshot cell %d has value %d", ErrMalformedMessage, i, b)
			}
			msg.Cells[i] = c
		}
		return msg, nil
	case KindFinishedPreparing:
		return FinishedPreparing{Finished: data[1]}, nil
	case KindTurnUpdate:
		turn, ok := turnFromWire(data[1])
		if !ok {
			return nil, fmt.Errorf("%w: turn value %d", ErrMalformedMessage, data[1])
		}
		return TurnUpdate{Turn: turn}, nil
	}
	return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownMessage, data[0])
}
