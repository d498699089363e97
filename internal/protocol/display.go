package protocol

import (
	"fmt"
	"io"

	"bomberperson/internal/wire"
)

// DisplayMessage tags, in wire declaration order.
const (
	displayTagLobby uint8 = iota
	displayTagGame
)

// DisplayMessage is the sealed sum the client sends to its display peer.
type DisplayMessage interface {
	isDisplayMessage()
	encodeTo(*wire.Encoder)
}

// LobbyView projects the server's Hello parameters plus the roster while no
// game is running.
type LobbyView struct {
	ServerName      string
	PlayersCount    uint8
	SizeX           uint16
	SizeY           uint16
	GameLength      uint16
	ExplosionRadius uint16
	BombTimer       uint16
	Players         map[PlayerId]Player
}

func (LobbyView) isDisplayMessage() {}
func (v LobbyView) encodeTo(e *wire.Encoder) {
	e.WriteUint8(displayTagLobby)
	e.WriteString(v.ServerName)
	e.WriteUint8(v.PlayersCount)
	e.WriteUint16(v.SizeX)
	e.WriteUint16(v.SizeY)
	e.WriteUint16(v.GameLength)
	e.WriteUint16(v.ExplosionRadius)
	e.WriteUint16(v.BombTimer)
	wire.EncodeMap(e, v.Players, func(a, b PlayerId) bool { return a < b }, encodePlayerID, encodePlayer)
}

// GameView projects the current running game: the Hello parameters minus
// players_count/bomb_timer/explosion_radius, plus live board state.
type GameView struct {
	ServerName      string
	SizeX           uint16
	SizeY           uint16
	GameLength      uint16
	Turn            uint16
	Players         map[PlayerId]Player
	PlayerPositions map[PlayerId]Position
	Blocks          []Position
	Bombs           []Bomb
	Explosions      []Position
	Scores          map[PlayerId]Score
}

func (GameView) isDisplayMessage() {}
func (v GameView) encodeTo(e *wire.Encoder) {
	e.WriteUint8(displayTagGame)
	e.WriteString(v.ServerName)
	e.WriteUint16(v.SizeX)
	e.WriteUint16(v.SizeY)
	e.WriteUint16(v.GameLength)
	e.WriteUint16(v.Turn)
	wire.EncodeMap(e, v.Players, func(a, b PlayerId) bool { return a < b }, encodePlayerID, encodePlayer)
	wire.EncodeMap(e, v.PlayerPositions, func(a, b PlayerId) bool { return a < b }, encodePlayerID, encodePosition)
	wire.EncodeSortedSet(e, v.Blocks, positionLess, encodePosition)
	wire.EncodeSlice(e, v.Bombs, encodeBomb)
	wire.EncodeSortedSet(e, v.Explosions, positionLess, encodePosition)
	wire.EncodeMap(e, v.Scores, func(a, b PlayerId) bool { return a < b }, encodePlayerID, encodeScore)
}

// WriteDisplayMessage encodes v as a single datagram payload written to w.
func WriteDisplayMessage(w io.Writer, v DisplayMessage) error {
	return wire.WriteMessage(w, v.encodeTo)
}

// DecodeDisplayMessage decodes a DisplayMessage from a complete datagram
// buffer, requiring that decoding consume every byte.
func DecodeDisplayMessage(data []byte) (DisplayMessage, error) {
	return wire.DecodeExact(data, decodeDisplayMessage)
}

func decodeDisplayMessage(d *wire.Decoder) (DisplayMessage, error) {
	tag, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case displayTagLobby:
		name, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		playersCount, err := d.ReadUint8()
		if err != nil {
			return nil, err
		}
		sizeX, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		sizeY, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		gameLength, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		radius, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		bombTimer, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		players, err := wire.DecodeMap(d, decodePlayerID, decodePlayer)
		if err != nil {
			return nil, err
		}
		return LobbyView{
			ServerName:      name,
			PlayersCount:    playersCount,
			SizeX:           sizeX,
			SizeY:           sizeY,
			GameLength:      gameLength,
			ExplosionRadius: radius,
			BombTimer:       bombTimer,
			Players:         players,
		}, nil
	case displayTagGame:
		name, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		sizeX, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		sizeY, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		gameLength, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		turnNo, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		players, err := wire.DecodeMap(d, decodePlayerID, decodePlayer)
		if err != nil {
			return nil, err
		}
		positions, err := wire.DecodeMap(d, decodePlayerID, decodePosition)
		if err != nil {
			return nil, err
		}
		blocks, err := wire.DecodeSlice(d, decodePosition)
		if err != nil {
			return nil, err
		}
		bombs, err := wire.DecodeSlice(d, decodeBomb)
		if err != nil {
			return nil, err
		}
		explosions, err := wire.DecodeSlice(d, decodePosition)
		if err != nil {
			return nil, err
		}
		scores, err := wire.DecodeMap(d, decodePlayerID, decodeScore)
		if err != nil {
			return nil, err
		}
		return GameView{
			ServerName:      name,
			SizeX:           sizeX,
			SizeY:           sizeY,
			GameLength:      gameLength,
			Turn:            turnNo,
			Players:         players,
			PlayerPositions: positions,
			Blocks:          blocks,
			Bombs:           bombs,
			Explosions:      explosions,
			Scores:          scores,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown display message tag %d", wire.ErrMalformedInput, tag)
	}
}

// InputMessage tags, in wire declaration order.
const (
	inputTagPlaceBomb uint8 = iota
	inputTagPlaceBlock
	inputTagMove
)

// InputMessage is the sealed sum the display peer sends the client.
type InputMessage interface {
	isInputMessage()
	encodeTo(*wire.Encoder)
}

type InputPlaceBomb struct{}

func (InputPlaceBomb) isInputMessage()         {}
func (InputPlaceBomb) encodeTo(e *wire.Encoder) { e.WriteUint8(inputTagPlaceBomb) }

type InputPlaceBlock struct{}

func (InputPlaceBlock) isInputMessage()         {}
func (InputPlaceBlock) encodeTo(e *wire.Encoder) { e.WriteUint8(inputTagPlaceBlock) }

type InputMove struct{ Direction Direction }

func (InputMove) isInputMessage() {}
func (m InputMove) encodeTo(e *wire.Encoder) {
	e.WriteUint8(inputTagMove)
	encodeDirection(e, m.Direction)
}

// WriteInputMessage encodes v as a single datagram payload written to w.
func WriteInputMessage(w io.Writer, v InputMessage) error {
	return wire.WriteMessage(w, v.encodeTo)
}

// DecodeInputMessage decodes an InputMessage from a complete datagram
// buffer, requiring that decoding consume every byte. Malformed or trailing
// input yields an error; callers on the client's display-facing side must
// drop the packet and leave state untouched rather than surface the error
// upward.
func DecodeInputMessage(data []byte) (InputMessage, error) {
	return wire.DecodeExact(data, decodeInputMessage)
}

func decodeInputMessage(d *wire.Decoder) (InputMessage, error) {
	tag, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case inputTagPlaceBomb:
		return InputPlaceBomb{}, nil
	case inputTagPlaceBlock:
		return InputPlaceBlock{}, nil
	case inputTagMove:
		dir, err := decodeDirection(d)
		if err != nil {
			return nil, err
		}
		return InputMove{Direction: dir}, nil
	default:
		return nil, fmt.Errorf("%w: unknown input message tag %d", wire.ErrMalformedInput, tag)
	}
}
