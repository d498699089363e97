package protocol

import (
	"fmt"
	"io"

	"bomberperson/internal/wire"
)

// ClientMessage tags, in wire declaration order.
const (
	clientTagJoin uint8 = iota
	clientTagPlaceBomb
	clientTagPlaceBlock
	clientTagMove
)

// ClientMessage is the sealed sum of everything a peer can send the server.
type ClientMessage interface {
	isClientMessage()
	encodeTo(*wire.Encoder)
}

type Join struct{ Name string }

func (Join) isClientMessage() {}
func (m Join) encodeTo(e *wire.Encoder) {
	e.WriteUint8(clientTagJoin)
	e.WriteString(m.Name)
}

type PlaceBombMsg struct{}

func (PlaceBombMsg) isClientMessage()          {}
func (PlaceBombMsg) encodeTo(e *wire.Encoder)  { e.WriteUint8(clientTagPlaceBomb) }

type PlaceBlockMsg struct{}

func (PlaceBlockMsg) isClientMessage()         {}
func (PlaceBlockMsg) encodeTo(e *wire.Encoder) { e.WriteUint8(clientTagPlaceBlock) }

type MoveMsg struct{ Direction Direction }

func (MoveMsg) isClientMessage() {}
func (m MoveMsg) encodeTo(e *wire.Encoder) {
	e.WriteUint8(clientTagMove)
	encodeDirection(e, m.Direction)
}

// WriteClientMessage encodes m and writes it atomically to w.
func WriteClientMessage(w io.Writer, m ClientMessage) error {
	return wire.WriteMessage(w, m.encodeTo)
}

// ReadClientMessage blocks on r until a full ClientMessage has arrived.
func ReadClientMessage(r io.Reader) (ClientMessage, error) {
	d := wire.NewDecoder(r)
	tag, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case clientTagJoin:
		name, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return Join{Name: name}, nil
	case clientTagPlaceBomb:
		return PlaceBombMsg{}, nil
	case clientTagPlaceBlock:
		return PlaceBlockMsg{}, nil
	case clientTagMove:
		dir, err := decodeDirection(d)
		if err != nil {
			return nil, err
		}
		return MoveMsg{Direction: dir}, nil
	default:
		return nil, fmt.Errorf("%w: unknown client message tag %d", wire.ErrMalformedInput, tag)
	}
}

// ServerMessage tags, in wire declaration order.
const (
	serverTagHello uint8 = iota
	serverTagAcceptedPlayer
	serverTagGameStarted
	serverTagTurn
	serverTagGameEnded
)

// ServerMessage is the sealed sum of everything the server can send a peer.
type ServerMessage interface {
	isServerMessage()
	encodeTo(*wire.Encoder)
}

// Hello carries the immutable parameters of the server's current run.
type Hello struct {
	ServerName      string
	PlayersCount    uint8
	SizeX           uint16
	SizeY           uint16
	GameLength      uint16
	ExplosionRadius uint16
	BombTimer       uint16
}

func (Hello) isServerMessage() {}
func (m Hello) encodeTo(e *wire.Encoder) {
	e.WriteUint8(serverTagHello)
	e.WriteString(m.ServerName)
	e.WriteUint8(m.PlayersCount)
	e.WriteUint16(m.SizeX)
	e.WriteUint16(m.SizeY)
	e.WriteUint16(m.GameLength)
	e.WriteUint16(m.ExplosionRadius)
	e.WriteUint16(m.BombTimer)
}

type AcceptedPlayer struct {
	ID     PlayerId
	Player Player
}

func (AcceptedPlayer) isServerMessage() {}
func (m AcceptedPlayer) encodeTo(e *wire.Encoder) {
	e.WriteUint8(serverTagAcceptedPlayer)
	encodePlayerID(e, m.ID)
	encodePlayer(e, m.Player)
}

type GameStarted struct {
	Players map[PlayerId]Player
}

func (GameStarted) isServerMessage() {}
func (m GameStarted) encodeTo(e *wire.Encoder) {
	e.WriteUint8(serverTagGameStarted)
	wire.EncodeMap(e, m.Players, func(a, b PlayerId) bool { return a < b }, encodePlayerID, encodePlayer)
}

// TurnMessage wraps a Turn as a ServerMessage.
type TurnMessage struct {
	Turn Turn
}

func (TurnMessage) isServerMessage() {}
func (m TurnMessage) encodeTo(e *wire.Encoder) {
	e.WriteUint8(serverTagTurn)
	encodeTurn(e, m.Turn)
}

type GameEnded struct {
	Scores map[PlayerId]Score
}

func (GameEnded) isServerMessage() {}
func (m GameEnded) encodeTo(e *wire.Encoder) {
	e.WriteUint8(serverTagGameEnded)
	wire.EncodeMap(e, m.Scores, func(a, b PlayerId) bool { return a < b }, encodePlayerID, encodeScore)
}

// WriteServerMessage encodes m and writes it atomically to w.
func WriteServerMessage(w io.Writer, m ServerMessage) error {
	return wire.WriteMessage(w, m.encodeTo)
}

// ReadServerMessage blocks on r until a full ServerMessage has arrived.
func ReadServerMessage(r io.Reader) (ServerMessage, error) {
	d := wire.NewDecoder(r)
	tag, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case serverTagHello:
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
		return Hello{
			ServerName:      name,
			PlayersCount:    playersCount,
			SizeX:           sizeX,
			SizeY:           sizeY,
			GameLength:      gameLength,
			ExplosionRadius: radius,
			BombTimer:       bombTimer,
		}, nil
	case serverTagAcceptedPlayer:
		id, err := decodePlayerID(d)
		if err != nil {
			return nil, err
		}
		p, err := decodePlayer(d)
		if err != nil {
			return nil, err
		}
		return AcceptedPlayer{ID: id, Player: p}, nil
	case serverTagGameStarted:
		players, err := wire.DecodeMap(d, decodePlayerID, decodePlayer)
		if err != nil {
			return nil, err
		}
		return GameStarted{Players: players}, nil
	case serverTagTurn:
		turn, err := decodeTurnBody(d)
		if err != nil {
			return nil, err
		}
		return TurnMessage{Turn: turn}, nil
	case serverTagGameEnded:
		scores, err := wire.DecodeMap(d, decodePlayerID, decodeScore)
		if err != nil {
			return nil, err
		}
		return GameEnded{Scores: scores}, nil
	default:
		return nil, fmt.Errorf("%w: unknown server message tag %d", wire.ErrMalformedInput, tag)
	}
}
