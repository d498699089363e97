package server

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bomberperson/internal/config"
	"bomberperson/internal/protocol"
	"bomberperson/internal/transport"
	"bomberperson/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func testConfig() config.Server {
	return config.Server{
		ServerName:      "test-server",
		PlayersCount:    1,
		BombTimer:       3,
		TurnDurationMs:  10,
		ExplosionRadius: 1,
		InitialBlocks:   0,
		GameLength:      1,
		SizeX:           3,
		SizeY:           3,
		Seed:            42,
		Port:            0,
	}
}

func startManager(t *testing.T, cfg config.Server) (net.Listener, func()) {
	t.Helper()
	ln, err := transport.Listen(0)
	require.NoError(t, err)

	m := NewManager(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, ln)
		close(done)
	}()

	return ln, func() {
		cancel()
		<-done
	}
}

func TestHailingSendsHello(t *testing.T) {
	ln, stop := startManager(t, testConfig())
	defer stop()

	conn, err := transport.DialServer(ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	msg, err := protocol.ReadServerMessage(conn)
	require.NoError(t, err)
	hello, ok := msg.(protocol.Hello)
	require.True(t, ok)
	require.Equal(t, "test-server", hello.ServerName)
	require.EqualValues(t, 1, hello.PlayersCount)
}

func TestSinglePlayerGameRunsToCompletion(t *testing.T) {
	ln, stop := startManager(t, testConfig())
	defer stop()

	conn, err := transport.DialServer(ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = protocol.ReadServerMessage(conn) // Hello
	require.NoError(t, err)

	require.NoError(t, protocol.WriteClientMessage(conn, protocol.Join{Name: "alice"}))

	accepted := readServerMessageT(t, conn)
	ap, ok := accepted.(protocol.AcceptedPlayer)
	require.True(t, ok)
	require.EqualValues(t, 0, ap.ID)
	require.Equal(t, "alice", ap.Player.Name)

	started := readServerMessageT(t, conn)
	gs, ok := started.(protocol.GameStarted)
	require.True(t, ok)
	require.Len(t, gs.Players, 1)

	turn0 := readServerMessageT(t, conn)
	tm, ok := turn0.(protocol.TurnMessage)
	require.True(t, ok)
	require.EqualValues(t, 0, tm.Turn.TurnNo)

	ended := readServerMessageT(t, conn)
	_, ok = ended.(protocol.GameEnded)
	require.True(t, ok)
}

func readServerMessageT(t *testing.T, conn net.Conn) protocol.ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, err := protocol.ReadServerMessage(conn)
	require.NoError(t, err)
	return msg
}

// TestLateJoinerReceivesIdenticalHistory covers spec.md §8 scenario 6 end
// to end: a peer connecting after the game has started must see GameStarted
// plus a turn history byte-identical, turn for turn, to what an
// already-connected peer was broadcast.
func TestLateJoinerReceivesIdenticalHistory(t *testing.T) {
	cfg := testConfig()
	cfg.PlayersCount = 2
	cfg.GameLength = 6
	cfg.TurnDurationMs = 15
	ln, stop := startManager(t, cfg)
	defer stop()

	connA, err := transport.DialServer(ln.Addr().String())
	require.NoError(t, err)
	defer connA.Close()
	_, err = protocol.ReadServerMessage(connA) // Hello
	require.NoError(t, err)
	require.NoError(t, protocol.WriteClientMessage(connA, protocol.Join{Name: "a"}))

	connB, err := transport.DialServer(ln.Addr().String())
	require.NoError(t, err)
	defer connB.Close()
	_, err = protocol.ReadServerMessage(connB) // Hello
	require.NoError(t, err)
	require.NoError(t, protocol.WriteClientMessage(connB, protocol.Join{Name: "b"}))

	_ = readServerMessageT(t, connA) // AcceptedPlayer a
	_ = readServerMessageT(t, connA) // AcceptedPlayer b
	_ = readServerMessageT(t, connA) // GameStarted
	turn0A := readServerMessageT(t, connA)
	turn1A := readServerMessageT(t, connA)

	late, err := transport.DialServer(ln.Addr().String())
	require.NoError(t, err)
	defer late.Close()

	lateHello := readServerMessageT(t, late)
	require.IsType(t, protocol.Hello{}, lateHello)

	lateStarted := readServerMessageT(t, late)
	require.IsType(t, protocol.GameStarted{}, lateStarted)

	lateTurn0 := readServerMessageT(t, late)
	require.Equal(t, turn0A, lateTurn0)

	lateTurn1 := readServerMessageT(t, late)
	require.Equal(t, turn1A, lateTurn1)
}

func TestReserveSlotRefusesWhenFull(t *testing.T) {
	m := NewManager(testConfig())

	var conns []net.Conn
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	for i := 0; i < MaxPeers; i++ {
		server, client := net.Pipe()
		conns = append(conns, server, client)
		_, ok := m.reserveSlot(server)
		require.True(t, ok)
	}

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	_, ok := m.reserveSlot(server)
	require.False(t, ok)
}

func TestDisconnectFreesSlot(t *testing.T) {
	m := NewManager(testConfig())
	server, client := net.Pipe()
	defer client.Close()

	idx, ok := m.reserveSlot(server)
	require.True(t, ok)

	m.disconnect(idx)

	_, client2 := net.Pipe()
	defer client2.Close()
	idxAfter, ok := m.reserveSlot(client2)
	require.True(t, ok)
	require.Equal(t, idx, idxAfter)
}

func TestCollectPendingOrdersBySeat(t *testing.T) {
	m := NewManager(testConfig())
	m.slots[2] = &peerSlot{inGame: true, playerID: 5}
	m.slots[0] = &peerSlot{inGame: true, playerID: 1, pending: protocol.PlaceBombMsg{}}
	m.slots[1] = &peerSlot{inGame: false, playerID: 9}

	order, pending := m.collectPending()
	require.Equal(t, []protocol.PlayerId{1, 5}, order)
	require.Contains(t, pending, protocol.PlayerId(1))
	require.NotContains(t, pending, protocol.PlayerId(5))
	require.NotContains(t, pending, protocol.PlayerId(9))
}
