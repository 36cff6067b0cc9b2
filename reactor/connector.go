// File: reactor/connector.go
// Package reactor implements the outbound session owner.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"sync"

	"go.uber.org/zap"

	"github.com/momentics/dirmux/api"
	"github.com/momentics/dirmux/session"
)

// Connector groups the outbound sessions it established. It is the
// close delegate for each: a connector-owned session's close tail lands
// here first, so the group's bookkeeping always reflects the close
// before the transport is released.
type Connector struct {
	demux *StreamDemux
	log   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session
}

var _ session.Closer = (*Connector)(nil)

// NewConnector builds a connector attaching sessions to demux.
func NewConnector(demux *StreamDemux, log *zap.Logger) *Connector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{
		demux:    demux,
		log:      log,
		sessions: make(map[string]*session.Session),
	}
}

// Attach registers an established outbound connection and returns its
// session.
func (c *Connector) Attach(conn api.Conn) (*session.Session, error) {
	s, err := c.demux.Attach(conn, api.ConnectorOwned, c)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.sessions[s.ID()] = s
	c.mu.Unlock()
	c.log.Debug("session connected",
		zap.String("session", s.ID()),
		zap.Stringer("remote", conn.RemoteAddr()))
	return s, nil
}

// CloseSession is the delegated close tail: drop the session from the
// group, then hand the transport release to its demux.
func (c *Connector) CloseSession(s *session.Session) {
	c.mu.Lock()
	delete(c.sessions, s.ID())
	c.mu.Unlock()
	c.demux.CloseSession(s)
}

// CloseAll requests the close protocol on every grouped session and
// returns their futures.
func (c *Connector) CloseAll() []api.WriteFuture {
	c.mu.Lock()
	all := make([]*session.Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		all = append(all, s)
	}
	c.mu.Unlock()

	futs := make([]api.WriteFuture, len(all))
	for i, s := range all {
		futs[i] = s.Close()
	}
	return futs
}

// Len reports the number of live grouped sessions.
func (c *Connector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}
