// File: reactor/sock_linux.go
// Package reactor implements non-blocking TCP and UDP endpoints.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build linux

package reactor

import (
	"net"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/dirmux/api"
)

const listenBacklog = 512

// sockConn is a non-blocking TCP descriptor.
type sockConn struct {
	fd     int
	local  net.Addr
	remote net.Addr
}

var _ api.Conn = (*sockConn)(nil)

func (c *sockConn) Read(p []byte) (int, error) {
	n, err := unix.Read(c.fd, p)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, api.ErrWouldBlock
	}
	if err != nil {
		return 0, errors.Wrap(err, "read")
	}
	return n, nil
}

func (c *sockConn) Write(p []byte) (int, error) {
	n, err := unix.Write(c.fd, p)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, api.ErrWouldBlock
	}
	if err != nil {
		return 0, errors.Wrap(err, "write")
	}
	return n, nil
}

func (c *sockConn) Close() error         { return unix.Close(c.fd) }
func (c *sockConn) FD() int              { return c.fd }
func (c *sockConn) LocalAddr() net.Addr  { return c.local }
func (c *sockConn) RemoteAddr() net.Addr { return c.remote }

// sockListener is a non-blocking accepting TCP socket.
type sockListener struct {
	fd   int
	addr net.Addr
}

var _ api.Listener = (*sockListener)(nil)

func (l *sockListener) Accept() (api.Conn, error) {
	nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return nil, api.ErrWouldBlock
	}
	if err != nil {
		return nil, errors.Wrap(err, "accept4")
	}
	return &sockConn{fd: nfd, local: l.addr, remote: sockaddrToTCP(sa)}, nil
}

func (l *sockListener) Close() error   { return unix.Close(l.fd) }
func (l *sockListener) FD() int        { return l.fd }
func (l *sockListener) Addr() net.Addr { return l.addr }

// Listen binds a non-blocking TCP listener suitable for AddListener.
func Listen(network, addr string) (api.Listener, error) {
	ta, err := net.ResolveTCPAddr(network, addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve")
	}
	fd, sa, err := tcpSocket(ta)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "so_reuseaddr")
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrapf(err, "bind %s", ta)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "listen")
	}
	bound, err := unix.Getsockname(fd)
	if err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "getsockname")
	}
	return &sockListener{fd: fd, addr: sockaddrToTCP(bound)}, nil
}

// Dial connects a TCP socket, then switches it to non-blocking mode for
// the demux loop. The connect itself blocks; callers wanting bounded
// establishment run Dial off the loop goroutine.
func Dial(network, addr string) (api.Conn, error) {
	ta, err := net.ResolveTCPAddr(network, addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve")
	}
	fd, sa, err := tcpSocket(ta)
	if err != nil {
		return nil, err
	}
	// tcpSocket hands back a non-blocking descriptor; re-block it so
	// Connect completes instead of returning EINPROGRESS.
	if err := unix.SetNonblock(fd, false); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "set block")
	}
	if err := unix.Connect(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrapf(err, "connect %s", ta)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "set nonblock")
	}
	local, err := unix.Getsockname(fd)
	if err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "getsockname")
	}
	return &sockConn{fd: fd, local: sockaddrToTCP(local), remote: ta}, nil
}

// tcpSocket opens a stream socket matching ta's address family. The
// listener and accept paths want non-blocking descriptors; Dial resets
// the flag around its blocking connect.
func tcpSocket(ta *net.TCPAddr) (int, unix.Sockaddr, error) {
	family := unix.AF_INET
	var sa unix.Sockaddr
	if ip4 := ta.IP.To4(); ip4 != nil || ta.IP == nil {
		s := &unix.SockaddrInet4{Port: ta.Port}
		if ip4 != nil {
			copy(s.Addr[:], ip4)
		}
		sa = s
	} else {
		family = unix.AF_INET6
		s := &unix.SockaddrInet6{Port: ta.Port}
		copy(s.Addr[:], ta.IP.To16())
		sa = s
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, nil, errors.Wrap(err, "socket")
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, nil, errors.Wrap(err, "set nonblock")
	}
	return fd, sa, nil
}

func sockaddrToTCP(sa unix.Sockaddr) net.Addr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: append(net.IP(nil), s.Addr[:]...), Port: s.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: append(net.IP(nil), s.Addr[:]...), Port: s.Port}
	}
	return &net.TCPAddr{}
}

// ListenPacket binds a UDP socket for the datagram demux. The socket
// stays blocking: the datagram loop reads on its own goroutine.
func ListenPacket(network, addr string) (api.PacketConn, error) {
	pc, err := net.ListenPacket(network, addr)
	if err != nil {
		return nil, errors.Wrap(err, "listen packet")
	}
	return netPacketConn{pc}, nil
}

// netPacketConn adapts net.PacketConn to the api surface.
type netPacketConn struct {
	pc net.PacketConn
}

var _ api.PacketConn = netPacketConn{}

func (c netPacketConn) ReadFrom(p []byte) (int, net.Addr, error) { return c.pc.ReadFrom(p) }
func (c netPacketConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	return c.pc.WriteTo(p, addr)
}
func (c netPacketConn) Close() error        { return c.pc.Close() }
func (c netPacketConn) LocalAddr() net.Addr { return c.pc.LocalAddr() }
