// Package protocol defines the typed message schema exchanged on the wire:
// ClientMessage, ServerMessage, DisplayMessage and InputMessage, each a
// closed tagged sum discriminated by a single leading byte, plus the Event
// sum nested inside ServerMessage.Turn. Every type here knows how to encode
// itself onto a wire.Encoder and decode itself from a wire.Decoder; callers
// never touch wire.Encoder/Decoder directly.
package protocol

import (
	"fmt"

	"bomberperson/internal/wire"
)

// PlayerId identifies a seat at the table. Values are small, dense integers
// assigned from 0 in join order and never reused within a running game.
type PlayerId uint8

func (id PlayerId) String() string { return fmt.Sprintf("player#%d", uint8(id)) }

// BombId uniquely identifies a bomb within a game; issuance is monotonically
// increasing at the server.
type BombId uint32

func (id BombId) String() string { return fmt.Sprintf("bomb#%d", uint32(id)) }

// Score counts the number of times a player has been caught in an explosion.
type Score uint32

// Position is a grid cell; both axes are always within [0, size).
type Position struct {
	X uint16
	Y uint16
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

func encodePosition(e *wire.Encoder, p Position) {
	e.WriteUint16(p.X)
	e.WriteUint16(p.Y)
}

func decodePosition(d *wire.Decoder) (Position, error) {
	x, err := d.ReadUint16()
	if err != nil {
		return Position{}, err
	}
	y, err := d.ReadUint16()
	if err != nil {
		return Position{}, err
	}
	return Position{X: x, Y: y}, nil
}

// positionLess gives positions a deterministic total order for wire
// encoding of position sets (row-major: y first, then x).
func positionLess(a, b Position) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// Direction is a movement direction. The four variants are declared in the
// exact order the wire tag table requires: Up, Right, Down, Left.
type Direction uint8

const (
	Up Direction = iota
	Right
	Down
	Left
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "Up"
	case Right:
		return "Right"
	case Down:
		return "Down"
	case Left:
		return "Left"
	default:
		return "Direction(invalid)"
	}
}

// Delta returns the (dx, dy) unit step for this direction. y grows upward:
// Up adds one to y, Down subtracts one.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, 1
	case Right:
		return 1, 0
	case Down:
		return 0, -1
	case Left:
		return -1, 0
	default:
		return 0, 0
	}
}

func encodeDirection(e *wire.Encoder, d Direction) {
	e.WriteUint8(uint8(d))
}

func decodeDirection(d *wire.Decoder) (Direction, error) {
	v, err := d.ReadUint8()
	if err != nil {
		return 0, err
	}
	if v > uint8(Left) {
		return 0, fmt.Errorf("%w: unknown direction %d", wire.ErrMalformedInput, v)
	}
	return Direction(v), nil
}

func encodePlayerID(e *wire.Encoder, id PlayerId) {
	e.WriteUint8(uint8(id))
}

func decodePlayerID(d *wire.Decoder) (PlayerId, error) {
	v, err := d.ReadUint8()
	return PlayerId(v), err
}

func encodeBombID(e *wire.Encoder, id BombId) {
	e.WriteUint32(uint32(id))
}

func decodeBombID(d *wire.Decoder) (BombId, error) {
	v, err := d.ReadUint32()
	return BombId(v), err
}

func encodeScore(e *wire.Encoder, s Score) {
	e.WriteUint32(uint32(s))
}

func decodeScore(d *wire.Decoder) (Score, error) {
	v, err := d.ReadUint32()
	return Score(v), err
}
