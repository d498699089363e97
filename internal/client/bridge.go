package client

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"

	"bomberperson/internal/protocol"
	"bomberperson/internal/transport"
	"bomberperson/pkg/logger"
)

// Bridge wires a server stream connection to a display datagram socket
// through a shared GameState, matching the input-task/game-task split of
// spec §5.3.
type Bridge struct {
	serverConn net.Conn
	display    *transport.DisplaySocket
	playerName string
	state      *GameState
}

// NewBridge builds a Bridge ready to Run.
func NewBridge(serverConn net.Conn, display *transport.DisplaySocket, playerName string) *Bridge {
	return &Bridge{
		serverConn: serverConn,
		display:    display,
		playerName: playerName,
		state:      NewGameState(),
	}
}

// Run drives both tasks until either fails or ctx is cancelled. A decoding
// error on the server stream is fatal per spec §4.4 and stops the bridge;
// a malformed or trailing display datagram is dropped and never surfaces
// here.
func (b *Bridge) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.gameTask(ctx)
	})
	g.Go(func() error {
		return b.inputTask(ctx)
	})

	go func() {
		<-ctx.Done()
		b.serverConn.Close()
		b.display.Close()
	}()

	return g.Wait()
}

// gameTask reads ServerMessages, reconciles them into GameState, and
// forwards the resulting projection to the display peer.
func (b *Bridge) gameTask(ctx context.Context) error {
	for {
		msg, err := protocol.ReadServerMessage(b.serverConn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("client: server stream decode failed: %w", err)
		}

		view, ok := ApplyServerMessage(b.state, msg)
		if !ok {
			continue
		}
		if err := protocol.WriteDisplayMessage(b.display, view); err != nil {
			logger.Log.WithError(err).Warn("sending display update failed")
		}
	}
}

// inputTask reads datagrams from the display peer, decodes them as
// InputMessage, and forwards the translated ClientMessage to the server.
// Any decode failure (malformed structure or trailing bytes) is dropped
// silently, per spec §4.2/§4.4's datagram failure policy.
func (b *Bridge) inputTask(ctx context.Context) error {
	for {
		packet, err := b.display.ReceivePacket()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("client: display socket read failed: %w", err)
		}

		in, err := protocol.DecodeInputMessage(packet)
		if err != nil {
			logger.Log.WithError(err).Debug("dropping malformed input packet")
			continue
		}

		out, ok := TranslateInput(b.state, in, b.playerName)
		if !ok {
			continue
		}
		if err := protocol.WriteClientMessage(b.serverConn, out); err != nil {
			return fmt.Errorf("client: sending to server failed: %w", err)
		}
	}
}
