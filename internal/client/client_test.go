package client

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"bomberperson/internal/protocol"
)

func helloMsg() protocol.Hello {
	return protocol.Hello{
		ServerName:      "srv",
		PlayersCount:    2,
		SizeX:           5,
		SizeY:           5,
		GameLength:      10,
		ExplosionRadius: 1,
		BombTimer:       3,
	}
}

func TestHelloResetsToLobby(t *testing.T) {
	s := NewGameState()
	view, ok := ApplyServerMessage(s, helloMsg())
	require.True(t, ok)
	lobby, ok := view.(protocol.LobbyView)
	require.True(t, ok)
	require.Equal(t, "srv", lobby.ServerName)
	require.True(t, s.lobby)
}

func TestGameStartedSuppressesIntermediateView(t *testing.T) {
	s := NewGameState()
	ApplyServerMessage(s, helloMsg())

	players := map[protocol.PlayerId]protocol.Player{0: {Name: "a", Address: "1.2.3.4:1"}}
	_, ok := ApplyServerMessage(s, protocol.GameStarted{Players: players})
	require.False(t, ok)
	require.False(t, s.lobby)
	require.EqualValues(t, 0, s.scores[0])
}

func TestTurnZeroSuppressesExplosionFlash(t *testing.T) {
	s := NewGameState()
	ApplyServerMessage(s, helloMsg())
	ApplyServerMessage(s, protocol.GameStarted{Players: map[protocol.PlayerId]protocol.Player{
		0: {Name: "a"},
	}})

	turn0 := protocol.Turn{TurnNo: 0, Events: []protocol.Event{
		protocol.PlayerMoved{ID: 0, Position: protocol.Position{X: 2, Y: 2}},
		protocol.BlockPlaced{Position: protocol.Position{X: 0, Y: 0}},
	}}
	view, ok := ApplyServerMessage(s, protocol.TurnMessage{Turn: turn0})
	require.True(t, ok)
	gv := view.(protocol.GameView)
	require.Empty(t, gv.Explosions)
	require.Contains(t, gv.PlayerPositions, protocol.PlayerId(0))
	require.Contains(t, gv.Blocks, protocol.Position{X: 0, Y: 0})
}

func TestBombExplosionGeometryStopsAtBlock(t *testing.T) {
	s := NewGameState()
	s.explosionRadius = 3
	s.sizeX, s.sizeY = 10, 10
	s.bombTimer = 3
	s.blocks[protocol.Position{X: 7, Y: 5}] = struct{}{}

	turnPlace := protocol.Turn{TurnNo: 1, Events: []protocol.Event{
		protocol.BombPlaced{ID: 1, Position: protocol.Position{X: 5, Y: 5}},
	}}
	ApplyServerMessage(s, protocol.TurnMessage{Turn: turnPlace})

	turnExplode := protocol.Turn{TurnNo: 2, Events: []protocol.Event{
		protocol.BombExploded{ID: 1, Killed: nil, Destroyed: []protocol.Position{{X: 7, Y: 5}}},
	}}
	view, ok := ApplyServerMessage(s, protocol.TurnMessage{Turn: turnExplode})
	require.True(t, ok)
	gv := view.(protocol.GameView)

	require.Contains(t, gv.Explosions, protocol.Position{X: 6, Y: 5})
	require.Contains(t, gv.Explosions, protocol.Position{X: 7, Y: 5})
	require.NotContains(t, gv.Explosions, protocol.Position{X: 8, Y: 5})
	require.NotContains(t, gv.Blocks, protocol.Position{X: 7, Y: 5})
}

func TestKilledThisTurnDrainsIntoScore(t *testing.T) {
	s := NewGameState()
	s.explosionRadius = 1
	s.sizeX, s.sizeY = 5, 5
	s.players[3] = protocol.Player{Name: "victim"}

	turn := protocol.Turn{TurnNo: 1, Events: []protocol.Event{
		protocol.BombExploded{ID: 9, Killed: []protocol.PlayerId{3}},
	}}
	ApplyServerMessage(s, protocol.TurnMessage{Turn: turn})
	require.EqualValues(t, 1, s.scores[3])
}

func TestGameEndedRevertsToLobbyAndClearsBombs(t *testing.T) {
	s := NewGameState()
	ApplyServerMessage(s, helloMsg())
	ApplyServerMessage(s, protocol.GameStarted{Players: map[protocol.PlayerId]protocol.Player{0: {Name: "a"}}})
	ApplyServerMessage(s, protocol.TurnMessage{Turn: protocol.Turn{TurnNo: 1, Events: []protocol.Event{
		protocol.BombPlaced{ID: 1, Position: protocol.Position{X: 1, Y: 1}},
	}}})
	require.Len(t, s.pendingBombs, 1)

	view, ok := ApplyServerMessage(s, protocol.GameEnded{Scores: map[protocol.PlayerId]protocol.Score{0: 4}})
	require.True(t, ok)
	_, isLobby := view.(protocol.LobbyView)
	require.True(t, isLobby)
	require.True(t, s.lobby)
	require.Empty(t, s.pendingBombs)
	require.EqualValues(t, 4, s.scores[0])
}

func TestTranslateInputFirstInputBecomesJoin(t *testing.T) {
	s := NewGameState()
	s.lobby = true

	out, ok := TranslateInput(s, protocol.InputMove{Direction: protocol.Up}, "alice")
	require.True(t, ok)
	join, isJoin := out.(protocol.Join)
	require.True(t, isJoin)
	require.Equal(t, "alice", join.Name)

	_, ok = TranslateInput(s, protocol.InputPlaceBomb{}, "alice")
	require.False(t, ok, "subsequent lobby inputs must be dropped")
}

func TestTranslateInputInGameForwardsDirectly(t *testing.T) {
	s := NewGameState()
	s.lobby = false

	out, ok := TranslateInput(s, protocol.InputMove{Direction: protocol.Left}, "alice")
	require.True(t, ok)
	require.Equal(t, protocol.MoveMsg{Direction: protocol.Left}, out)

	out, ok = TranslateInput(s, protocol.InputPlaceBomb{}, "alice")
	require.True(t, ok)
	require.Equal(t, protocol.PlaceBombMsg{}, out)
}

func TestAcceptedPlayerToleratedMidGame(t *testing.T) {
	s := NewGameState()
	s.lobby = false
	_, ok := ApplyServerMessage(s, protocol.AcceptedPlayer{ID: 7, Player: protocol.Player{Name: "late"}})
	require.True(t, ok)
	require.Contains(t, s.players, protocol.PlayerId(7))
}

// TestLateJoinEquivalence covers spec.md §8 scenario 6: a peer that
// receives Hello, GameStarted, and the full turn history in one catch-up
// burst must end up in exactly the state a peer that saw the same messages
// trickle in one at a time would be in.
func TestLateJoinEquivalence(t *testing.T) {
	hello := helloMsg()
	gameStarted := protocol.GameStarted{Players: map[protocol.PlayerId]protocol.Player{
		0: {Name: "a", Address: "1.1.1.1:1"},
		1: {Name: "b", Address: "2.2.2.2:2"},
	}}
	turns := []protocol.TurnMessage{
		{Turn: protocol.Turn{TurnNo: 0, Events: []protocol.Event{
			protocol.PlayerMoved{ID: 0, Position: protocol.Position{X: 1, Y: 1}},
			protocol.PlayerMoved{ID: 1, Position: protocol.Position{X: 3, Y: 3}},
		}}},
		{Turn: protocol.Turn{TurnNo: 1, Events: []protocol.Event{
			protocol.BombPlaced{ID: 1, Position: protocol.Position{X: 1, Y: 1}},
		}}},
		{Turn: protocol.Turn{TurnNo: 2, Events: []protocol.Event{
			protocol.BombExploded{ID: 1, Killed: []protocol.PlayerId{1}},
			protocol.PlayerMoved{ID: 1, Position: protocol.Position{X: 4, Y: 4}},
		}}},
	}

	// The live peer has each message applied as it arrives.
	liveView := func() protocol.DisplayMessage {
		s := NewGameState()
		ApplyServerMessage(s, hello)
		ApplyServerMessage(s, gameStarted)
		var last protocol.DisplayMessage
		for _, tm := range turns {
			view, ok := ApplyServerMessage(s, tm)
			require.True(t, ok)
			last = view
		}
		return last
	}()

	// The late joiner receives the same messages as one contiguous byte
	// stream and decodes them back one by one.
	var burst bytes.Buffer
	require.NoError(t, protocol.WriteServerMessage(&burst, hello))
	require.NoError(t, protocol.WriteServerMessage(&burst, gameStarted))
	for _, tm := range turns {
		require.NoError(t, protocol.WriteServerMessage(&burst, tm))
	}
	late := NewGameState()
	var lateJoinerView protocol.DisplayMessage
	for burst.Len() > 0 {
		msg, err := protocol.ReadServerMessage(&burst)
		require.NoError(t, err)
		if view, ok := ApplyServerMessage(late, msg); ok {
			lateJoinerView = view
		}
	}

	// View slices are filled from maps in no fixed order, so compare the
	// encoded display messages, which write every set sorted.
	var liveBytes, lateBytes bytes.Buffer
	require.NoError(t, protocol.WriteDisplayMessage(&liveBytes, liveView))
	require.NoError(t, protocol.WriteDisplayMessage(&lateBytes, lateJoinerView))
	require.Equal(t, liveBytes.Bytes(), lateBytes.Bytes())
}

// TestMalformedDisplayInputIsIgnored covers spec.md §8 scenario 5: a
// datagram with an unrecognised tag must be dropped before it ever reaches
// TranslateInput, leaving GameState untouched and producing nothing to
// forward to the server — mirroring Bridge.inputTask's decode-then-translate
// sequence.
func TestMalformedDisplayInputIsIgnored(t *testing.T) {
	s := NewGameState()
	s.lobby = false
	s.players[0] = protocol.Player{Name: "a"}
	s.positions[0] = protocol.Position{X: 1, Y: 1}

	_, err := protocol.DecodeInputMessage([]byte{0x99})
	require.Error(t, err, "unknown input tag must be rejected by the decoder")

	require.Equal(t, protocol.Position{X: 1, Y: 1}, s.positions[0])
	require.False(t, s.lobby)
}
