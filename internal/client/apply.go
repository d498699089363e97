package client

import "bomberperson/internal/protocol"

// ApplyServerMessage updates state per spec §4.4's message handling rules
// and returns the DisplayMessage to forward to the display peer, or false
// if nothing should be sent (the GameStarted special case: the client does
// not send an intermediate empty Game, turn 0 does that immediately).
func ApplyServerMessage(s *GameState, msg protocol.ServerMessage) (protocol.DisplayMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m := msg.(type) {
	case protocol.Hello:
		applyHello(s, m)
		return lobbyView(s), true
	case protocol.AcceptedPlayer:
		// Tolerated in both Lobby and Game (spec §4.4, §9 open question);
		// the server never actually emits this mid-game.
		s.players[m.ID] = m.Player
		return currentView(s), true
	case protocol.GameStarted:
		applyGameStarted(s, m)
		return nil, false
	case protocol.TurnMessage:
		applyTurn(s, m.Turn)
		return gameView(s), true
	case protocol.GameEnded:
		applyGameEnded(s, m)
		return lobbyView(s), true
	default:
		return nil, false
	}
}

func applyHello(s *GameState, m protocol.Hello) {
	s.serverName = m.ServerName
	s.playersCount = m.PlayersCount
	s.sizeX, s.sizeY = m.SizeX, m.SizeY
	s.gameLength = m.GameLength
	s.explosionRadius = m.ExplosionRadius
	s.bombTimer = m.BombTimer

	s.lobby = true
	s.joinSent = false
	s.players = make(map[protocol.PlayerId]protocol.Player)
	s.resetBoard()
}

func applyGameStarted(s *GameState, m protocol.GameStarted) {
	s.lobby = false
	s.players = make(map[protocol.PlayerId]protocol.Player, len(m.Players))
	for id, p := range m.Players {
		s.players[id] = p
	}
	s.resetBoard()
}

func applyTurn(s *GameState, turn protocol.Turn) {
	if s.lobby {
		// A Turn with no preceding GameStarted should not normally arrive;
		// converting defensively keeps the client from getting stuck.
		s.lobby = false
	}

	s.explosions = make(map[protocol.Position]struct{})
	s.oldBlocks = make(map[protocol.Position]struct{}, len(s.blocks))
	for pos := range s.blocks {
		s.oldBlocks[pos] = struct{}{}
	}

	for id, bomb := range s.pendingBombs {
		bomb.timer--
		s.pendingBombs[id] = bomb
	}

	for _, ev := range turn.Events {
		applyEvent(s, ev)
	}

	s.turn = turn.TurnNo
	if turn.TurnNo == 0 {
		s.explosions = make(map[protocol.Position]struct{})
	}

	for id := range s.killedThisTurn {
		s.scores[id]++
	}
	s.killedThisTurn = make(map[protocol.PlayerId]struct{})
}

func applyEvent(s *GameState, ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.BombPlaced:
		s.pendingBombs[e.ID] = pendingBomb{position: e.Position, timer: s.bombTimer}
	case protocol.BombExploded:
		blast := blastCells(s, bombOrigin(s, e))
		for pos := range blast {
			s.explosions[pos] = struct{}{}
		}
		for _, id := range e.Killed {
			s.killedThisTurn[id] = struct{}{}
		}
		for _, pos := range e.Destroyed {
			delete(s.blocks, pos)
			s.explosions[pos] = struct{}{}
		}
		delete(s.pendingBombs, e.ID)
	case protocol.PlayerMoved:
		s.positions[e.ID] = e.Position
	case protocol.BlockPlaced:
		s.blocks[e.Position] = struct{}{}
	}
}

// bombOrigin recovers the exploding bomb's cell from the client's own
// pending-bomb table; the server's BombExploded event carries only the
// kill/destroy sets, not the origin, so the client must already know it
// from the matching BombPlaced it saw earlier.
func bombOrigin(s *GameState, e protocol.BombExploded) protocol.Position {
	if b, ok := s.pendingBombs[e.ID]; ok {
		return b.position
	}
	return protocol.Position{}
}

// blastCells walks the Manhattan cross with blocking described in spec
// §4.4: four rays from origin, each up to explosion_radius steps
// (inclusive of the origin cell), stopping at the grid edge or the first
// cell that was in old_blocks (which is itself included, since the block
// absorbs the blast rather than letting it pass through).
func blastCells(s *GameState, origin protocol.Position) map[protocol.Position]struct{} {
	cells := make(map[protocol.Position]struct{})
	directions := []protocol.Direction{protocol.Up, protocol.Right, protocol.Down, protocol.Left}
	for _, dir := range directions {
		pos := origin
		for i := uint16(0); i <= s.explosionRadius; i++ {
			cells[pos] = struct{}{}
			if _, blocked := s.oldBlocks[pos]; blocked {
				break
			}
			next := clampStep(pos, dir, s.sizeX, s.sizeY)
			if next == pos {
				break
			}
			pos = next
		}
	}
	return cells
}

func clampStep(pos protocol.Position, dir protocol.Direction, sizeX, sizeY uint16) protocol.Position {
	dx, dy := dir.Delta()
	x, y := int(pos.X), int(pos.Y)
	nx, ny := x+dx, y+dy
	if nx < 0 || nx >= int(sizeX) {
		nx = x
	}
	if ny < 0 || ny >= int(sizeY) {
		ny = y
	}
	return protocol.Position{X: uint16(nx), Y: uint16(ny)}
}

func applyGameEnded(s *GameState, m protocol.GameEnded) {
	for id, score := range m.Scores {
		s.scores[id] = score
	}
	s.lobby = true
	s.joinSent = false
	s.pendingBombs = make(map[protocol.BombId]pendingBomb)
	s.oldBlocks = make(map[protocol.Position]struct{})
	s.blocks = make(map[protocol.Position]struct{})
	s.positions = make(map[protocol.PlayerId]protocol.Position)
	s.killedThisTurn = make(map[protocol.PlayerId]struct{})
	s.explosions = make(map[protocol.Position]struct{})
}

func currentView(s *GameState) protocol.DisplayMessage {
	if s.lobby {
		return lobbyView(s)
	}
	return gameView(s)
}

func lobbyView(s *GameState) protocol.DisplayMessage {
	players := make(map[protocol.PlayerId]protocol.Player, len(s.players))
	for id, p := range s.players {
		players[id] = p
	}
	return protocol.LobbyView{
		ServerName:      s.serverName,
		PlayersCount:    s.playersCount,
		SizeX:           s.sizeX,
		SizeY:           s.sizeY,
		GameLength:      s.gameLength,
		ExplosionRadius: s.explosionRadius,
		BombTimer:       s.bombTimer,
		Players:         players,
	}
}

func gameView(s *GameState) protocol.DisplayMessage {
	players := make(map[protocol.PlayerId]protocol.Player, len(s.players))
	for id, p := range s.players {
		players[id] = p
	}
	positions := make(map[protocol.PlayerId]protocol.Position, len(s.positions))
	for id, p := range s.positions {
		positions[id] = p
	}
	scores := make(map[protocol.PlayerId]protocol.Score, len(s.scores))
	for id, sc := range s.scores {
		scores[id] = sc
	}

	var blocks []protocol.Position
	for pos := range s.blocks {
		blocks = append(blocks, pos)
	}
	var explosions []protocol.Position
	for pos := range s.explosions {
		explosions = append(explosions, pos)
	}
	var bombs []protocol.Bomb
	for _, b := range s.pendingBombs {
		bombs = append(bombs, protocol.Bomb{Position: b.position, Timer: b.timer})
	}

	return protocol.GameView{
		ServerName:      s.serverName,
		SizeX:           s.sizeX,
		SizeY:           s.sizeY,
		GameLength:      s.gameLength,
		Turn:            s.turn,
		Players:         players,
		PlayerPositions: positions,
		Blocks:          blocks,
		Bombs:           bombs,
		Explosions:      explosions,
		Scores:          scores,
	}
}

// TranslateInput converts a display peer InputMessage into the
// ClientMessage to forward to the server, per spec §4.4 Input translation.
// The very first valid input seen while in Lobby is discarded and replaced
// by Join{playerName}; every input after that while still in Lobby is
// dropped, since there is no game yet to move in.
func TranslateInput(s *GameState, in protocol.InputMessage, playerName string) (protocol.ClientMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lobby {
		if s.joinSent {
			return nil, false
		}
		s.joinSent = true
		return protocol.Join{Name: playerName}, true
	}

	switch m := in.(type) {
	case protocol.InputPlaceBomb:
		return protocol.PlaceBombMsg{}, true
	case protocol.InputPlaceBlock:
		return protocol.PlaceBlockMsg{}, true
	case protocol.InputMove:
		return protocol.MoveMsg{Direction: m.Direction}, true
	default:
		return nil, false
	}
}
