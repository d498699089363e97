package transport

import (
	"fmt"
	"net"
)

// MaxDatagramSize bounds a single UDP read, comfortably above the largest
// possible IPv4/IPv6 UDP payload (65 507 bytes).
const MaxDatagramSize = 65535

// DisplaySocket is the client's single local UDP socket, used both to send
// display updates and to receive input from the display peer.
type DisplaySocket struct {
	conn     *net.UDPConn
	peerAddr *net.UDPAddr
}

// OpenDisplaySocket binds a local UDP socket on localPort and resolves
// peerAddr as the display peer's address for outgoing sends.
func OpenDisplaySocket(localPort uint16, peerAddr string) (*DisplaySocket, error) {
	laddr := &net.UDPAddr{Port: int(localPort)}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: bind display socket on port %d: %w", localPort, err)
	}
	raddr, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: resolve display peer %s: %w", peerAddr, err)
	}
	return &DisplaySocket{conn: conn, peerAddr: raddr}, nil
}

// Close releases the underlying socket.
func (s *DisplaySocket) Close() error {
	return s.conn.Close()
}

// Send writes one complete message as a single UDP datagram to the display
// peer.
func (s *DisplaySocket) Send(payload []byte) error {
	_, err := s.conn.WriteToUDP(payload, s.peerAddr)
	return err
}

// Write implements io.Writer over Send, so DisplaySocket can be handed
// directly to protocol.WriteDisplayMessage.
func (s *DisplaySocket) Write(payload []byte) (int, error) {
	if err := s.Send(payload); err != nil {
		return 0, err
	}
	return len(payload), nil
}

// ReceivePacket blocks for the next inbound datagram from any sender and
// returns its raw bytes, bounded to MaxDatagramSize. The caller is
// responsible for structural decoding and the no-trailing-bytes check;
// packets that fail either must be dropped without affecting state.
func (s *DisplaySocket) ReceivePacket() ([]byte, error) {
	buf := make([]byte, MaxDatagramSize)
	n, _, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
