// File: api/conn.go
// Package api defines non-blocking transport endpoints.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "net"

// Conn is a non-blocking stream endpoint driven by a Poller. Read and
// Write return ErrWouldBlock instead of blocking when the socket has
// no data or no capacity.
type Conn interface {
	// Read fills p with available bytes. A (0, nil) return means the
	// peer shut down the stream.
	Read(p []byte) (int, error)

	// Write sends as much of p as the socket accepts right now.
	Write(p []byte) (int, error)

	// Close releases the descriptor.
	Close() error

	// FD returns the descriptor registered with the poller.
	FD() int

	// LocalAddr returns the local endpoint.
	LocalAddr() net.Addr

	// RemoteAddr returns the peer endpoint.
	RemoteAddr() net.Addr
}

// Listener is a non-blocking accepting socket driven by a Poller.
type Listener interface {
	// Accept returns the next pending connection, or ErrWouldBlock
	// when the backlog is empty.
	Accept() (Conn, error)

	// Close releases the listening descriptor.
	Close() error

	// FD returns the descriptor registered with the poller.
	FD() int

	// Addr returns the bound address.
	Addr() net.Addr
}

// PacketConn is a datagram endpoint. Unlike Conn it needs no
// write-readiness signaling: sends either complete immediately or
// fail.
type PacketConn interface {
	ReadFrom(p []byte) (int, net.Addr, error)
	WriteTo(p []byte, addr net.Addr) (int, error)
	Close() error
	LocalAddr() net.Addr
}
