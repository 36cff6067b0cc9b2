// File: fake/conn.go
// Package fake implements scriptable stream endpoints.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"net"
	"sync"

	"github.com/momentics/dirmux/api"
)

// Addr is a trivial net.Addr for fakes.
type Addr string

func (a Addr) Network() string { return "fake" }
func (a Addr) String() string  { return string(a) }

// Conn is a scriptable api.Conn. Reads are fed by FeedRead and drained
// in order; writes land in Written, bounded per call by the write
// capacity script so tests can force partial writes and EAGAIN.
type Conn struct {
	fd     int
	local  net.Addr
	remote net.Addr

	mu       sync.Mutex
	readable [][]byte
	eof      bool
	readErr  error

	// caps scripts successive Write calls: each entry is the byte
	// capacity of one call, 0 meaning ErrWouldBlock. When the script is
	// exhausted writes accept everything.
	caps     []int
	written  []byte
	writeErr error
	closed   bool
}

var _ api.Conn = (*Conn)(nil)

// NewConn builds a fake stream endpoint with the given descriptor.
func NewConn(fd int) *Conn {
	return &Conn{fd: fd, local: Addr("local"), remote: Addr("remote")}
}

// FeedRead queues bytes for subsequent Read calls, one call per feed.
func (c *Conn) FeedRead(b []byte) {
	c.mu.Lock()
	c.readable = append(c.readable, append([]byte(nil), b...))
	c.mu.Unlock()
}

// FeedEOF makes Read report a peer shutdown once the fed data drains.
func (c *Conn) FeedEOF() {
	c.mu.Lock()
	c.eof = true
	c.mu.Unlock()
}

// FailReads makes every subsequent Read return err.
func (c *Conn) FailReads(err error) {
	c.mu.Lock()
	c.readErr = err
	c.mu.Unlock()
}

// ScriptWrites sets per-call write capacities; a zero entry forces one
// ErrWouldBlock.
func (c *Conn) ScriptWrites(caps ...int) {
	c.mu.Lock()
	c.caps = append(c.caps, caps...)
	c.mu.Unlock()
}

// FailWrites makes every subsequent Write return err.
func (c *Conn) FailWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// Written returns everything accepted so far.
func (c *Conn) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.written...)
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return 0, c.readErr
	}
	if len(c.readable) == 0 {
		if c.eof {
			return 0, nil
		}
		return 0, api.ErrWouldBlock
	}
	head := c.readable[0]
	n := copy(p, head)
	if n < len(head) {
		c.readable[0] = head[n:]
	} else {
		c.readable = c.readable[1:]
	}
	return n, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	n := len(p)
	if len(c.caps) > 0 {
		lim := c.caps[0]
		c.caps = c.caps[1:]
		if lim == 0 {
			return 0, api.ErrWouldBlock
		}
		if lim < n {
			n = lim
		}
	}
	c.written = append(c.written, p[:n]...)
	return n, nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Conn) FD() int              { return c.fd }
func (c *Conn) LocalAddr() net.Addr  { return c.local }
func (c *Conn) RemoteAddr() net.Addr { return c.remote }

// Listener is a scriptable api.Listener: tests queue connections with
// Offer and the demux accepts them on readiness.
type Listener struct {
	fd int

	mu      sync.Mutex
	backlog []*Conn
	closed  bool
}

var _ api.Listener = (*Listener)(nil)

// NewListener builds a fake listener with the given descriptor.
func NewListener(fd int) *Listener {
	return &Listener{fd: fd}
}

// Offer queues a connection for Accept.
func (l *Listener) Offer(c *Conn) {
	l.mu.Lock()
	l.backlog = append(l.backlog, c)
	l.mu.Unlock()
}

func (l *Listener) Accept() (api.Conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.backlog) == 0 {
		return nil, api.ErrWouldBlock
	}
	c := l.backlog[0]
	l.backlog = l.backlog[1:]
	return c, nil
}

func (l *Listener) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}

func (l *Listener) FD() int        { return l.fd }
func (l *Listener) Addr() net.Addr { return Addr("listener") }
