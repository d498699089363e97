package protocol

import (
	"fmt"

	"bomberperson/internal/wire"
)

// Event tags, in the declaration order the wire format uses as the
// discriminant.
const (
	eventTagBombPlaced uint8 = iota
	eventTagBombExploded
	eventTagPlayerMoved
	eventTagBlockPlaced
)

// Event is the sealed sum of everything that can happen during a turn. The
// unexported marker method keeps the set of implementations closed to this
// package, so a type switch over Event is statically exhaustive.
type Event interface {
	isEvent()
	encodeTo(*wire.Encoder)
}

// BombPlaced records that a bomb was armed at pos.
type BombPlaced struct {
	ID       BombId
	Position Position
}

func (BombPlaced) isEvent() {}

func (ev BombPlaced) encodeTo(e *wire.Encoder) {
	e.WriteUint8(eventTagBombPlaced)
	encodeBombID(e, ev.ID)
	encodePosition(e, ev.Position)
}

// BombExploded records a bomb's detonation: every player caught in the blast
// and every block the blast destroyed. Killed and Destroyed are semantically
// sets; encodeTo writes a sorted copy of each, so the encoding does not
// depend on the order the caller built them in.
type BombExploded struct {
	ID        BombId
	Killed    []PlayerId
	Destroyed []Position
}

func (BombExploded) isEvent() {}

func (ev BombExploded) encodeTo(e *wire.Encoder) {
	e.WriteUint8(eventTagBombExploded)
	encodeBombID(e, ev.ID)
	wire.EncodeSortedSet(e, ev.Killed, func(a, b PlayerId) bool { return a < b }, encodePlayerID)
	wire.EncodeSortedSet(e, ev.Destroyed, positionLess, encodePosition)
}

// PlayerMoved records a player's new position, whether from a move, a spawn
// or a respawn.
type PlayerMoved struct {
	ID       PlayerId
	Position Position
}

func (PlayerMoved) isEvent() {}

func (ev PlayerMoved) encodeTo(e *wire.Encoder) {
	e.WriteUint8(eventTagPlayerMoved)
	encodePlayerID(e, ev.ID)
	encodePosition(e, ev.Position)
}

// BlockPlaced records that a block now occupies pos.
type BlockPlaced struct {
	Position Position
}

func (BlockPlaced) isEvent() {}

func (ev BlockPlaced) encodeTo(e *wire.Encoder) {
	e.WriteUint8(eventTagBlockPlaced)
	encodePosition(e, ev.Position)
}

func encodeEvent(e *wire.Encoder, ev Event) {
	ev.encodeTo(e)
}

func decodeEvent(d *wire.Decoder) (Event, error) {
	tag, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case eventTagBombPlaced:
		id, err := decodeBombID(d)
		if err != nil {
			return nil, err
		}
		pos, err := decodePosition(d)
		if err != nil {
			return nil, err
		}
		return BombPlaced{ID: id, Position: pos}, nil
	case eventTagBombExploded:
		id, err := decodeBombID(d)
		if err != nil {
			return nil, err
		}
		killed, err := wire.DecodeSlice(d, decodePlayerID)
		if err != nil {
			return nil, err
		}
		destroyed, err := wire.DecodeSlice(d, decodePosition)
		if err != nil {
			return nil, err
		}
		return BombExploded{ID: id, Killed: killed, Destroyed: destroyed}, nil
	case eventTagPlayerMoved:
		id, err := decodePlayerID(d)
		if err != nil {
			return nil, err
		}
		pos, err := decodePosition(d)
		if err != nil {
			return nil, err
		}
		return PlayerMoved{ID: id, Position: pos}, nil
	case eventTagBlockPlaced:
		pos, err := decodePosition(d)
		if err != nil {
			return nil, err
		}
		return BlockPlaced{Position: pos}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event tag %d", wire.ErrMalformedInput, tag)
	}
}

// Turn bundles every event produced during one tick. Events preserve
// declaration order (turn 0 is all PlayerMoved then all BlockPlaced;
// later turns are bombings, then moves, then respawns), which is what makes
// two independently-run servers with the same seed and join order produce
// byte-identical turns.
type Turn struct {
	TurnNo uint16
	Events []Event
}

func encodeTurn(e *wire.Encoder, t Turn) {
	e.WriteUint16(t.TurnNo)
	wire.EncodeSlice(e, t.Events, encodeEvent)
}

func decodeTurnBody(d *wire.Decoder) (Turn, error) {
	turnNo, err := d.ReadUint16()
	if err != nil {
		return Turn{}, err
	}
	events, err := wire.DecodeSlice(d, decodeEvent)
	if err != nil {
		return Turn{}, err
	}
	return Turn{TurnNo: turnNo, Events: events}, nil
}
