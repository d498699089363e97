package protocol

import (
	"errors"

	"bomberperson/internal/wire"
)

// MaxNameLength is the largest name the wire format can carry: the string
// length prefix is a single byte.
const MaxNameLength = 255

// ErrNameTooLong is returned by ValidateName for names over MaxNameLength.
var ErrNameTooLong = errors.New("protocol: player name exceeds 255 bytes")

// ValidateName enforces the wire-representable bound on player names before
// they ever reach the encoder.
func ValidateName(name string) error {
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// Player is a joined participant. Address is display-only: it never affects
// simulation and is derived from the peer's remote endpoint at admission
// time.
type Player struct {
	Name    string
	Address string
}

func encodePlayer(e *wire.Encoder, p Player) {
	e.WriteString(p.Name)
	e.WriteString(p.Address)
}

func decodePlayer(d *wire.Decoder) (Player, error) {
	name, err := d.ReadString()
	if err != nil {
		return Player{}, err
	}
	addr, err := d.ReadString()
	if err != nil {
		return Player{}, err
	}
	return Player{Name: name, Address: addr}, nil
}

// Bomb is a ticking bomb somewhere on the board.
type Bomb struct {
	Position Position
	Timer    uint16
}

func encodeBomb(e *wire.Encoder, b Bomb) {
	encodePosition(e, b.Position)
	e.WriteUint16(b.Timer)
}

func decodeBomb(d *wire.Decoder) (Bomb, error) {
	pos, err := decodePosition(d)
	if err != nil {
		return Bomb{}, err
	}
	timer, err := d.ReadUint16()
	if err != nil {
		return Bomb{}, err
	}
	return Bomb{Position: pos, Timer: timer}, nil
}
