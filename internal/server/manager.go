// Package server implements the connection manager: the peer slot table,
// the acceptor and per-peer receive loops, join admission, fan-out, and the
// fixed-tick game loop that drives internal/game.Engine. The engine knows
// nothing about sockets; this package knows nothing about bomb geometry.
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bomberperson/internal/config"
	"bomberperson/internal/game"
	"bomberperson/internal/protocol"
	"bomberperson/internal/transport"
	"bomberperson/pkg/logger"
)

// MaxPeers bounds the peer slot table (spec §4.6).
const MaxPeers = 25

// peerSlot is one occupied connection. hasPlayer/inGame track whether this
// slot currently holds an active seat in the running game, which is a
// connection-manager concept distinct from the engine's own player roster:
// a disconnected player stays in the engine's roster (still scored, still
// affected by the simulation) but drops out of every slot's inGame set.
type peerSlot struct {
	conn      net.Conn
	address   string
	playerID  protocol.PlayerId
	hasPlayer bool
	inGame    bool
	pending   protocol.ClientMessage
}

// Manager owns the peer slot table and the single game loop that ticks the
// engine. All of its state is guarded by one mutex; see DESIGN.md for why
// this collapses the spec's per-collection lock-order scheme.
type Manager struct {
	mu     sync.Mutex
	slots  [MaxPeers]*peerSlot
	engine *game.Engine
	cfg    config.Server

	gameStarted chan struct{}
}

// NewManager builds a Manager around a freshly constructed engine.
func NewManager(cfg config.Server) *Manager {
	return &Manager{
		engine:      game.NewEngine(cfg),
		cfg:         cfg,
		gameStarted: make(chan struct{}, 1),
	}
}

// Run accepts connections and drives the game loop until ctx is cancelled
// or the listener fails. Both tasks are supervised by an errgroup, matching
// spec §5's acceptor/game-master task split.
func (m *Manager) Run(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return m.acceptLoop(ctx, ln)
	})
	g.Go(func() error {
		return m.gameLoop(ctx)
	})

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	return g.Wait()
}

func (m *Manager) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := transport.AcceptPeer(ln)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Log.WithError(err).Warn("accept failed")
			continue
		}

		idx, ok := m.reserveSlot(conn)
		if !ok {
			logger.Log.Warn("peer table full, refusing connection")
			conn.Close()
			continue
		}

		go m.peerLoop(idx)
	}
}

// reserveSlot claims the first free slot for conn, or reports false if the
// table is full (spec: "new connections are refused ... when the table is
// full").
func (m *Manager) reserveSlot(conn net.Conn) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.slots {
		if s == nil {
			m.slots[i] = &peerSlot{conn: conn, address: conn.RemoteAddr().String()}
			return i, true
		}
	}
	return 0, false
}

// peerLoop hails a newly accepted peer, then blocks reading client messages
// until the connection fails or decodes malformed input, at which point it
// tears the slot down (spec §4.6, §7).
func (m *Manager) peerLoop(idx int) {
	m.mu.Lock()
	slot := m.slots[idx]
	m.mu.Unlock()

	defer m.disconnect(idx)

	if err := protocol.WriteServerMessage(slot.conn, m.engine.Hello()); err != nil {
		logger.Log.WithError(err).Debug("hailing peer failed")
		return
	}
	if err := m.sendLateJoinReplay(slot.conn); err != nil {
		logger.Log.WithError(err).Debug("late-join replay failed")
		return
	}

	for {
		msg, err := protocol.ReadClientMessage(slot.conn)
		if err != nil {
			return
		}
		m.handleClientMessage(idx, msg)
	}
}

// sendLateJoinReplay sends GameStarted and the full turn history if a game
// is currently running, so a peer connecting mid-game reconstructs exactly
// what everyone else already has (spec §4.5 Late-join replay).
func (m *Manager) sendLateJoinReplay(conn net.Conn) error {
	snap := m.engine.Snapshot()
	if !snap.InGame {
		return nil
	}
	if _, err := conn.Write(snap.GameStartedBytes); err != nil {
		return err
	}
	for _, turnBytes := range snap.HistoryBytes {
		if _, err := conn.Write(turnBytes); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) handleClientMessage(idx int, msg protocol.ClientMessage) {
	switch m2 := msg.(type) {
	case protocol.Join:
		m.handleJoin(idx, m2.Name)
	case protocol.PlaceBombMsg, protocol.PlaceBlockMsg, protocol.MoveMsg:
		m.setPending(idx, msg)
	}
}

// handleJoin admits a peer to the next game, if the server is in Lobby and
// the peer is not already seated (spec §4.5 Join admission). Admission
// itself, and the possible game start it triggers, run under the slot
// table lock so that AcceptedPlayer/GameStarted broadcasts happen before
// any later message is processed.
func (m *Manager) handleJoin(idx int, name string) {
	if err := protocol.ValidateName(name); err != nil {
		logger.Log.WithError(err).Debug("rejecting overlong name")
		return
	}

	m.mu.Lock()
	slot := m.slots[idx]
	if slot == nil || slot.hasPlayer {
		m.mu.Unlock()
		return
	}

	result, accepted := m.engine.Join(name, slot.address)
	if !accepted {
		m.mu.Unlock()
		return
	}

	slot.hasPlayer = true
	slot.playerID = result.Accepted.ID
	slot.inGame = true

	started := result.Started
	m.mu.Unlock()

	m.broadcast(result.Accepted)
	if started {
		m.broadcast(result.GameStartedMsg)
		m.broadcast(result.Turn0)
		select {
		case m.gameStarted <- struct{}{}:
		default:
		}
	}
}

// setPending overwrites the slot's pending move-class message. A seat can
// be admitted (slot.inGame) before the game itself has actually started —
// players_count-1 seats sit in Lobby waiting for the last join — so this
// also gates on the engine's own global state; otherwise a move sent while
// still waiting for joiners would queue and get replayed into turn 1,
// which spec's stray-Lobby-moves resolution says never to do.
func (m *Manager) setPending(idx int, msg protocol.ClientMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot := m.slots[idx]
	if slot == nil || !slot.inGame || !m.engine.InGame() {
		return
	}
	slot.pending = msg
}

// disconnect tears a slot down. A peer that had an active seat keeps its
// player record (still scored, still affected by the running simulation)
// but stops contributing moves.
func (m *Manager) disconnect(idx int) {
	m.mu.Lock()
	slot := m.slots[idx]
	m.slots[idx] = nil
	m.mu.Unlock()

	if slot == nil {
		return
	}
	slot.conn.Close()
}

// broadcast fans a server message out to every occupied slot. A send
// failure on one peer is that peer's disconnect, handled by tearing its
// slot down directly rather than waiting for its receive loop to notice
// (spec: "send failures on a peer are treated as that peer's disconnect").
func (m *Manager) broadcast(msg protocol.ServerMessage) {
	m.mu.Lock()
	conns := make([]net.Conn, 0, MaxPeers)
	indices := make([]int, 0, MaxPeers)
	for i, s := range m.slots {
		if s != nil {
			conns = append(conns, s.conn)
			indices = append(indices, i)
		}
	}
	m.mu.Unlock()

	for i, conn := range conns {
		if err := protocol.WriteServerMessage(conn, msg); err != nil {
			m.disconnect(indices[i])
		}
	}
}

// gameLoop waits for a game to start, then ticks the engine at the
// configured turn duration until game_length turns have been broadcast,
// at which point it ends the game and goes back to waiting.
func (m *Manager) gameLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.gameStarted:
		}

		if err := m.runGame(ctx); err != nil {
			return err
		}
	}
}

func (m *Manager) runGame(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.TurnDuration())
	defer ticker.Stop()

	for turnNo := uint16(1); turnNo < m.engine.GameLength(); turnNo++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		order, pending := m.collectPending()
		turnMsg := m.engine.RunTurn(order, pending)
		m.broadcast(turnMsg)
	}

	ended := m.engine.EndGame()
	m.broadcast(ended)
	m.clearInGameFlags()
	return nil
}

// collectPending snapshots every active seat's pending message and clears
// the slots, returning seats in ascending PlayerId order as the moves
// phase requires.
func (m *Manager) collectPending() ([]protocol.PlayerId, map[protocol.PlayerId]protocol.ClientMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var order []protocol.PlayerId
	pending := make(map[protocol.PlayerId]protocol.ClientMessage)
	for _, s := range m.slots {
		if s == nil || !s.inGame {
			continue
		}
		order = append(order, s.playerID)
		if s.pending != nil {
			pending[s.playerID] = s.pending
			s.pending = nil
		}
	}
	sortPlayerIDs(order)
	return order, pending
}

func (m *Manager) clearInGameFlags() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.slots {
		if s != nil {
			s.hasPlayer = false
			s.inGame = false
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
