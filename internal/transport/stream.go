// Package transport adapts raw TCP and UDP socket I/O to the two framing
// disciplines the wire protocol requires: a self-delimiting, no-length-prefix
// stream between server and client, and one-message-per-datagram between
// client and display peer. It owns socket setup (dialing, listening,
// TCP_NODELAY, bounded UDP reads); the protocol package owns what the bytes
// mean.
package transport

import (
	"fmt"
	"net"
)

// DialServer opens a TCP connection to a Bomberperson server with
// TCP_NODELAY enabled, so the server's turn-by-turn broadcasts are not
// coalesced with whatever the client sends next.
func DialServer(addr string) (net.Conn, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial server %s: %w", addr, err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			return nil, fmt.Errorf("transport: set no-delay: %w", err)
		}
	}
	return conn, nil
}

// Listen opens a dual-stack-preferred TCP listener on port for the server's
// acceptor task.
func Listen(port uint16) (net.Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("transport: listen on port %d: %w", port, err)
	}
	return ln, nil
}

// AcceptPeer accepts one connection from ln and enables TCP_NODELAY on it.
func AcceptPeer(ln net.Listener) (net.Conn, error) {
	conn, err := ln.Accept()
	if err != nil {
		return nil, err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: set no-delay: %w", err)
		}
	}
	return conn, nil
}
