// File: fake/packetconn.go
// Package fake implements the loopback packet socket.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"net"
	"sync"

	"github.com/momentics/dirmux/api"
)

type packet struct {
	data []byte
	addr net.Addr
}

// PacketConn is an api.PacketConn fed by the test. ReadFrom blocks
// until a packet is fed or the socket closes; WriteTo records sent
// packets per destination.
type PacketConn struct {
	mu     sync.Mutex
	cond   *sync.Cond
	inbox  []packet
	sent   map[string][][]byte
	closed bool
}

var _ api.PacketConn = (*PacketConn)(nil)

// NewPacketConn returns an open loopback packet socket.
func NewPacketConn() *PacketConn {
	pc := &PacketConn{sent: make(map[string][][]byte)}
	pc.cond = sync.NewCond(&pc.mu)
	return pc
}

// Feed queues one inbound packet from addr.
func (pc *PacketConn) Feed(data []byte, addr net.Addr) {
	pc.mu.Lock()
	pc.inbox = append(pc.inbox, packet{append([]byte(nil), data...), addr})
	pc.mu.Unlock()
	pc.cond.Broadcast()
}

// Sent returns the packets written to addr so far.
func (pc *PacketConn) Sent(addr net.Addr) [][]byte {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	out := make([][]byte, len(pc.sent[addr.String()]))
	copy(out, pc.sent[addr.String()])
	return out
}

func (pc *PacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	for len(pc.inbox) == 0 && !pc.closed {
		pc.cond.Wait()
	}
	if pc.closed {
		return 0, nil, net.ErrClosed
	}
	pkt := pc.inbox[0]
	pc.inbox = pc.inbox[1:]
	n := copy(p, pkt.data)
	return n, pkt.addr, nil
}

func (pc *PacketConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.closed {
		return 0, net.ErrClosed
	}
	pc.sent[addr.String()] = append(pc.sent[addr.String()], append([]byte(nil), p...))
	return len(p), nil
}

func (pc *PacketConn) Close() error {
	pc.mu.Lock()
	pc.closed = true
	pc.mu.Unlock()
	pc.cond.Broadcast()
	return nil
}

func (pc *PacketConn) LocalAddr() net.Addr { return Addr("packet-local") }
