// Package game implements the server's authoritative turn-based simulation:
// the lobby/game state machine, turn 0 construction, the per-turn bombing/
// move/respawn pipeline, and scoring. It has no notion of network peers —
// internal/server drives it and fans out whatever it returns.
package game

import (
	"fmt"
	"sync"

	"bomberperson/internal/config"
	"bomberperson/internal/protocol"
	"bomberperson/pkg/logger"
)

// Engine is the single authoritative simulation owned by the game-master
// task. Every exported method takes its own lock, so it is safe to call
// from the join-admission path and the turn-loop path concurrently; the
// spec's finer-grained per-collection lock ordering collapses here into one
// mutex; see DESIGN.md for why that's a safe simplification.
type Engine struct {
	mu  sync.Mutex
	cfg config.Server
	rng *lcg

	inGame      bool
	currentTurn uint16
	board       *boardState

	// history holds the encoded bytes of every ServerMessage Turn emitted
	// in the current game (including turn 0), verbatim, so a late joiner
	// can be replayed byte-for-byte identical to what earlier peers saw.
	history [][]byte
	// gameStartedBytes is the encoded GameStarted message for the current
	// game, kept for the same reason.
	gameStartedBytes []byte
}

// NewEngine builds an Engine from server configuration. The RNG is seeded
// once and persists across lobby/game cycles for the server's lifetime.
func NewEngine(cfg config.Server) *Engine {
	return &Engine{
		cfg:   cfg,
		rng:   newLCG(cfg.Seed),
		board: newBoardState(),
	}
}

// Hello returns the server's immutable run parameters.
func (e *Engine) Hello() protocol.Hello {
	return protocol.Hello{
		ServerName:      e.cfg.ServerName,
		PlayersCount:    e.cfg.PlayersCount,
		SizeX:           e.cfg.SizeX,
		SizeY:           e.cfg.SizeY,
		GameLength:      e.cfg.GameLength,
		ExplosionRadius: e.cfg.ExplosionRadius,
		BombTimer:       e.cfg.BombTimer,
	}
}

// LateJoinSnapshot describes what a peer connecting mid-game must be sent,
// after Hello, to replay it to the current state (spec §4.5 Late-join
// replay).
type LateJoinSnapshot struct {
	InGame           bool
	Players          map[protocol.PlayerId]protocol.Player
	GameStartedBytes []byte
	HistoryBytes     [][]byte
}

// Snapshot returns enough state for a newly-connected peer's hailing
// sequence, whether or not a game is currently running.
func (e *Engine) Snapshot() LateJoinSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	players := make(map[protocol.PlayerId]protocol.Player, len(e.board.players))
	for id, p := range e.board.players {
		players[id] = p
	}

	var history [][]byte
	if e.inGame {
		history = make([][]byte, len(e.history))
		copy(history, e.history)
	}

	return LateJoinSnapshot{
		InGame:           e.inGame,
		Players:          players,
		GameStartedBytes: e.gameStartedBytes,
		HistoryBytes:     history,
	}
}

// JoinResult reports the outcome of an admission attempt.
type JoinResult struct {
	Accepted       protocol.AcceptedPlayer
	Started        bool
	GameStartedMsg protocol.GameStarted
	Turn0          protocol.TurnMessage
}

// Join admits name/address as a new player if the server is currently in
// Lobby. It assigns the smallest unused PlayerId, and if this is the
// players_count-th join, atomically starts the game and constructs turn 0.
func (e *Engine) Join(name, address string) (JoinResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inGame {
		return JoinResult{}, false
	}

	id := e.board.nextFreePlayerID()
	player := protocol.Player{Name: name, Address: address}
	e.board.players[id] = player

	result := JoinResult{
		Accepted: protocol.AcceptedPlayer{ID: id, Player: player},
	}

	if len(e.board.players) == int(e.cfg.PlayersCount) {
		gameStarted, turn0 := e.startGameLocked()
		result.Started = true
		result.GameStartedMsg = gameStarted
		result.Turn0 = turn0
	}

	return result, true
}

// startGameLocked clears all game-scoped state and constructs turn 0. Must
// be called with mu held.
func (e *Engine) startGameLocked() (protocol.GameStarted, protocol.TurnMessage) {
	e.board.resetForNewGame()
	e.currentTurn = 0
	e.history = nil

	var events []protocol.Event
	for _, id := range e.board.sortedPlayerIDs() {
		pos := e.randomPosition()
		e.board.positions[id] = pos
		events = append(events, protocol.PlayerMoved{ID: id, Position: pos})
	}
	for i := uint16(0); i < e.cfg.InitialBlocks; i++ {
		pos := e.randomPosition()
		e.board.blocks[pos] = struct{}{}
		events = append(events, protocol.BlockPlaced{Position: pos})
	}

	turn0 := protocol.Turn{TurnNo: 0, Events: events}
	turnMsg := protocol.TurnMessage{Turn: turn0}

	players := make(map[protocol.PlayerId]protocol.Player, len(e.board.players))
	for id, p := range e.board.players {
		players[id] = p
	}
	gameStarted := protocol.GameStarted{Players: players}

	e.gameStartedBytes = mustEncodeServerMessage(gameStarted)
	e.history = append(e.history, mustEncodeServerMessage(turnMsg))
	e.inGame = true

	logger.Log.WithField("players", len(e.board.players)).Info("game started")

	return gameStarted, turnMsg
}

func (e *Engine) randomPosition() protocol.Position {
	return protocol.Position{
		X: e.rng.intn(e.cfg.SizeX),
		Y: e.rng.intn(e.cfg.SizeY),
	}
}

// RunTurn executes one turn of the pipeline for turn numbers 1..game_length-1
// (spec §4.5 Turn pipeline). pending carries, for every currently-playing
// seat, the last client message it sent since the previous tick (absent
// entries mean "no pending message").
func (e *Engine) RunTurn(playingOrder []protocol.PlayerId, pending map[protocol.PlayerId]protocol.ClientMessage) protocol.TurnMessage {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.currentTurn++
	var events []protocol.Event
	killedThisTurn := make(map[protocol.PlayerId]struct{})
	destroyedThisTurn := make(map[protocol.Position]struct{})

	// 1. Bombing.
	for _, bombID := range e.board.sortedBombIDs() {
		bomb := e.board.bombs[bombID]
		bomb.Timer--
		if bomb.Timer != 0 {
			e.board.bombs[bombID] = bomb
			continue
		}
		killed, destroyed := e.explode(bomb.Position, killedThisTurn, destroyedThisTurn)
		events = append(events, protocol.BombExploded{ID: bombID, Killed: killed, Destroyed: destroyed})
		delete(e.board.bombs, bombID)
	}

	// 2. Moves, in ascending seat id order.
	for _, id := range playingOrder {
		if _, dead := killedThisTurn[id]; dead {
			continue
		}
		msg, hasMsg := pending[id]
		if !hasMsg {
			continue
		}
		if ev, ok := e.applyMove(id, msg); ok {
			events = append(events, ev)
		}
	}

	// 3. Respawn killed players, ascending id order.
	respawnIDs := make([]protocol.PlayerId, 0, len(killedThisTurn))
	for id := range killedThisTurn {
		respawnIDs = append(respawnIDs, id)
	}
	sortPlayerIDs(respawnIDs)
	for _, id := range respawnIDs {
		pos := e.randomPosition()
		e.board.positions[id] = pos
		events = append(events, protocol.PlayerMoved{ID: id, Position: pos})
	}

	// 4. Commit: scores and block removal.
	for _, id := range respawnIDs {
		e.board.scores[id]++
	}
	for pos := range destroyedThisTurn {
		delete(e.board.blocks, pos)
	}

	turn := protocol.Turn{TurnNo: e.currentTurn, Events: events}
	msg := protocol.TurnMessage{Turn: turn}
	e.history = append(e.history, mustEncodeServerMessage(msg))
	return msg
}

// explode computes one bomb's blast: the Manhattan-cross-with-blocking walk
// described in spec §4.4/§4.5, four independent rays (including the origin
// cell on each) that stop at the grid edge or the first block they touch
// (which absorbs the blast and is itself destroyed). killedThisTurn and
// destroyedThisTurn accumulate across every bomb exploding this turn so
// overlapping blasts union correctly; the returned slices are this bomb's
// own killed/destroyed sets, without duplicates, in first-encountered order
// (the encoder sorts them before they go on the wire).
func (e *Engine) explode(origin protocol.Position, killedThisTurn map[protocol.PlayerId]struct{}, destroyedThisTurn map[protocol.Position]struct{}) ([]protocol.PlayerId, []protocol.Position) {
	var killed []protocol.PlayerId
	var destroyed []protocol.Position
	seenKilled := make(map[protocol.PlayerId]struct{})
	seenDestroyed := make(map[protocol.Position]struct{})

	addKilled := func(id protocol.PlayerId) {
		killedThisTurn[id] = struct{}{}
		if _, ok := seenKilled[id]; !ok {
			seenKilled[id] = struct{}{}
			killed = append(killed, id)
		}
	}
	addDestroyed := func(pos protocol.Position) {
		destroyedThisTurn[pos] = struct{}{}
		if _, ok := seenDestroyed[pos]; !ok {
			seenDestroyed[pos] = struct{}{}
			destroyed = append(destroyed, pos)
		}
	}

	directions := []protocol.Direction{protocol.Up, protocol.Right, protocol.Down, protocol.Left}
	for _, dir := range directions {
		pos := origin
		for i := uint16(0); i <= e.cfg.ExplosionRadius; i++ {
			for _, id := range e.board.sortedPlayerIDs() {
				if e.board.positions[id] == pos {
					addKilled(id)
				}
			}
			if _, isBlock := e.board.blocks[pos]; isBlock {
				addDestroyed(pos)
				break
			}
			next := e.clampStep(pos, dir)
			if next == pos {
				break
			}
			pos = next
		}
	}

	return killed, destroyed
}

func (e *Engine) clampStep(pos protocol.Position, dir protocol.Direction) protocol.Position {
	dx, dy := dir.Delta()
	x, y := int(pos.X), int(pos.Y)
	nx, ny := x+dx, y+dy
	if nx < 0 || nx >= int(e.cfg.SizeX) {
		nx = x
	}
	if ny < 0 || ny >= int(e.cfg.SizeY) {
		ny = y
	}
	return protocol.Position{X: uint16(nx), Y: uint16(ny)}
}

// applyMove dispatches one seat's pending client message. It returns the
// event it produced, if any.
func (e *Engine) applyMove(id protocol.PlayerId, msg protocol.ClientMessage) (protocol.Event, bool) {
	switch m := msg.(type) {
	case protocol.PlaceBombMsg:
		bombID := e.board.nextBombID
		e.board.nextBombID++
		e.board.bombs[bombID] = protocol.Bomb{Position: e.board.positions[id], Timer: e.cfg.BombTimer}
		return protocol.BombPlaced{ID: bombID, Position: e.board.positions[id]}, true
	case protocol.PlaceBlockMsg:
		pos := e.board.positions[id]
		if _, already := e.board.blocks[pos]; already {
			return nil, false
		}
		e.board.blocks[pos] = struct{}{}
		return protocol.BlockPlaced{Position: pos}, true
	case protocol.MoveMsg:
		current := e.board.positions[id]
		candidate := e.clampStep(current, m.Direction)
		if candidate == current {
			return nil, false
		}
		if _, blocked := e.board.blocks[candidate]; blocked {
			return nil, false
		}
		e.board.positions[id] = candidate
		return protocol.PlayerMoved{ID: id, Position: candidate}, true
	default:
		return nil, false
	}
}

// EndGame builds the GameEnded message, clears every game-scoped
// collection, and returns the server back to Lobby. Players themselves are
// cleared too (spec: "clear players and playing_clients"); the connection
// manager is responsible for marking connected peers no-longer-in-game.
func (e *Engine) EndGame() protocol.GameEnded {
	e.mu.Lock()
	defer e.mu.Unlock()

	scores := make(map[protocol.PlayerId]protocol.Score, len(e.board.scores))
	for id, s := range e.board.scores {
		scores[id] = s
	}

	e.board.players = make(map[protocol.PlayerId]protocol.Player)
	e.board.positions = make(map[protocol.PlayerId]protocol.Position)
	e.board.bombs = make(map[protocol.BombId]protocol.Bomb)
	e.board.scores = make(map[protocol.PlayerId]protocol.Score)
	e.board.blocks = make(map[protocol.Position]struct{})
	e.history = nil
	e.gameStartedBytes = nil
	e.inGame = false
	e.currentTurn = 0

	logger.Log.Info("game ended")

	return protocol.GameEnded{Scores: scores}
}

// InGame reports whether a game is currently running.
func (e *Engine) InGame() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inGame
}

// GameLength returns the configured number of turns per game.
func (e *Engine) GameLength() uint16 {
	return e.cfg.GameLength
}

func mustEncodeServerMessage(msg protocol.ServerMessage) []byte {
	var buf sliceWriter
	if err := protocol.WriteServerMessage(&buf, msg); err != nil {
		panic(fmt.Sprintf("game: encoding a server message must never fail: %v", err))
	}
	return buf.data
}

// sliceWriter is a minimal io.Writer backed by a growable byte slice, used
// only to capture an encoded message's bytes for the turn-history buffer.
type sliceWriter struct{ data []byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}
