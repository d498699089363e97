package game

import (
	"bomberperson/internal/protocol"
)

// boardState holds every game-scoped collection that gets cleared and
// rebuilt at the start of each game (spec §3 Lifecycles).
type boardState struct {
	players    map[protocol.PlayerId]protocol.Player
	positions  map[protocol.PlayerId]protocol.Position
	bombs      map[protocol.BombId]protocol.Bomb
	scores     map[protocol.PlayerId]protocol.Score
	blocks     map[protocol.Position]struct{}
	nextBombID protocol.BombId
}

func newBoardState() *boardState {
	return &boardState{
		players:   make(map[protocol.PlayerId]protocol.Player),
		positions: make(map[protocol.PlayerId]protocol.Position),
		bombs:     make(map[protocol.BombId]protocol.Bomb),
		scores:    make(map[protocol.PlayerId]protocol.Score),
		blocks:    make(map[protocol.Position]struct{}),
	}
}

// resetForNewGame clears every game-scoped collection but keeps players and
// their roster (they carry over from the lobby into the running game).
func (s *boardState) resetForNewGame() {
	s.positions = make(map[protocol.PlayerId]protocol.Position)
	s.bombs = make(map[protocol.BombId]protocol.Bomb)
	s.scores = make(map[protocol.PlayerId]protocol.Score)
	s.blocks = make(map[protocol.Position]struct{})
	s.nextBombID = 0
	for id := range s.players {
		s.scores[id] = 0
	}
}

// sortedPlayerIDs returns every player id in ascending order.
func (s *boardState) sortedPlayerIDs() []protocol.PlayerId {
	ids := make([]protocol.PlayerId, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sortPlayerIDs(ids)
	return ids
}

// sortedBombIDs returns every bomb id in ascending order.
func (s *boardState) sortedBombIDs() []protocol.BombId {
	ids := make([]protocol.BombId, 0, len(s.bombs))
	for id := range s.bombs {
		ids = append(ids, id)
	}
	sortBombIDs(ids)
	return ids
}

// nextFreePlayerID returns the smallest non-negative PlayerId not already in
// use, per spec's "minimum unused non-negative id" admission rule.
func (s *boardState) nextFreePlayerID() protocol.PlayerId {
	for id := protocol.PlayerId(0); ; id++ {
		if _, taken := s.players[id]; !taken {
			return id
		}
	}
}

func sortPlayerIDs(ids []protocol.PlayerId) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func sortBombIDs(ids []protocol.BombId) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
