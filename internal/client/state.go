// Package client implements the reconciliation engine that bridges a
// server stream connection to a display datagram peer: it aggregates
// ServerMessage events into a projected Lobby/Game view, computes
// explosion geometry, and translates display input into ClientMessages.
package client

import (
	"sync"

	"bomberperson/internal/protocol"
)

// pendingBomb is a bomb the client knows is armed but has not yet seen
// explode, tracked with its own locally-decremented timer.
type pendingBomb struct {
	position protocol.Position
	timer    uint16
}

// GameState is the client's whole reconciliation state: the current
// Lobby/Game projection, the pending bomb table, this tick's kill set, the
// previous turn's block snapshot (needed for explosion geometry), and the
// input-translation gate described in spec §4.4. Both the game task
// (ApplyServerMessage) and the input task (TranslateInput) touch it, so mu
// guards every field rather than relying on a single-writer split: the
// input task both reads and sets joinSent, which a read-only discipline
// can't express.
type GameState struct {
	mu sync.Mutex

	serverName      string
	playersCount    uint8
	sizeX, sizeY    uint16
	gameLength      uint16
	explosionRadius uint16
	bombTimer       uint16

	lobby    bool
	joinSent bool

	players   map[protocol.PlayerId]protocol.Player
	positions map[protocol.PlayerId]protocol.Position
	blocks    map[protocol.Position]struct{}
	oldBlocks map[protocol.Position]struct{}
	scores    map[protocol.PlayerId]protocol.Score

	pendingBombs   map[protocol.BombId]pendingBomb
	killedThisTurn map[protocol.PlayerId]struct{}
	explosions     map[protocol.Position]struct{}

	turn uint16
}

// NewGameState returns a client with no server identity yet; the first
// message it must see is Hello.
func NewGameState() *GameState {
	return &GameState{
		lobby:          true,
		players:        make(map[protocol.PlayerId]protocol.Player),
		positions:      make(map[protocol.PlayerId]protocol.Position),
		blocks:         make(map[protocol.Position]struct{}),
		oldBlocks:      make(map[protocol.Position]struct{}),
		scores:         make(map[protocol.PlayerId]protocol.Score),
		pendingBombs:   make(map[protocol.BombId]pendingBomb),
		killedThisTurn: make(map[protocol.PlayerId]struct{}),
		explosions:     make(map[protocol.Position]struct{}),
	}
}

func (s *GameState) resetBoard() {
	s.positions = make(map[protocol.PlayerId]protocol.Position)
	s.blocks = make(map[protocol.Position]struct{})
	s.oldBlocks = make(map[protocol.Position]struct{})
	s.pendingBombs = make(map[protocol.BombId]pendingBomb)
	s.killedThisTurn = make(map[protocol.PlayerId]struct{})
	s.explosions = make(map[protocol.Position]struct{})
	s.turn = 0
	for id := range s.players {
		s.scores[id] = 0
	}
}
