// File: reactor/datagram.go
// Package reactor implements the datagram demux.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/momentics/dirmux/api"
	"github.com/momentics/dirmux/control"
	"github.com/momentics/dirmux/session"
)

// DatagramDemux multiplexes one packet socket into per-peer sessions.
// Datagram transports need no write-readiness machinery: sends complete
// or fail immediately, so flushes run inline on the notifying goroutine
// under a send lock instead of hopping to a loop.
type DatagramDemux struct {
	pc   api.PacketConn
	opts options

	mu    sync.Mutex
	peers map[string]*session.Session

	sendMu sync.Mutex
	closed atomic.Bool
}

var _ session.Manager = (*DatagramDemux)(nil)

// NewDatagramDemux builds a demux over pc. Run must be called for
// inbound traffic to flow; writes work as soon as a session exists.
func NewDatagramDemux(pc api.PacketConn, opt ...Option) *DatagramDemux {
	o := defaultOptions()
	for _, fn := range opt {
		fn(&o)
	}
	return &DatagramDemux{
		pc:    pc,
		opts:  o,
		peers: make(map[string]*session.Session),
	}
}

// Metrics returns the counter registry this demux reports into.
func (d *DatagramDemux) Metrics() *control.MetricsRegistry { return d.opts.metrics }

// Run reads packets until the socket closes, routing each to its
// peer's session. Unknown peers get a session on first packet.
func (d *DatagramDemux) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { d.Stop() })
	defer stop()

	for {
		buf := d.opts.pool.Get(d.opts.readSize)
		n, addr, err := d.pc.ReadFrom(buf)
		if err != nil {
			d.opts.pool.Put(buf)
			if d.closed.Load() {
				d.teardown()
				return ctx.Err()
			}
			d.teardown()
			return errors.Wrap(err, "read packet")
		}
		s := d.Associate(addr)
		d.opts.metrics.Add(control.MetricBytesRead, int64(n))
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.opts.log.Error("panic servicing session",
						zap.String("session", s.ID()), zap.Any("panic", r))
					s.FilterChain().FireExceptionCaught(
						errors.Errorf("session panic: %v", r))
				}
			}()
			s.FilterChain().FireMessageReceived(buf[:n:n])
		}()
		// The chain copies anything it parks; recycle unconditionally.
		d.opts.pool.Put(buf)
	}
}

// Associate returns the session bound to addr, creating it on first
// use. Sessions created here are acceptor-owned: the socket existed
// before the peer did.
func (d *DatagramDemux) Associate(addr net.Addr) *session.Session {
	key := addr.String()
	d.mu.Lock()
	if s, ok := d.peers[key]; ok {
		d.mu.Unlock()
		return s
	}
	s := session.New(session.Config{
		Kind:    api.TransportDatagram,
		Owner:   api.AcceptorOwned,
		Local:   d.pc.LocalAddr(),
		Remote:  addr,
		Manager: d,
		Logger:  d.opts.log,
	})
	d.peers[key] = s
	d.mu.Unlock()

	if d.opts.installer != nil {
		d.opts.installer(s)
	}
	d.opts.registry.Put(s)
	d.opts.metrics.Inc(control.MetricSessionsAccepted)
	d.opts.log.Debug("datagram peer associated",
		zap.String("session", s.ID()), zap.Stringer("remote", addr))
	return s
}

// ScheduleFlush sends queued datagrams inline. Each queued request is
// one packet; partial sends do not exist on this transport.
func (d *DatagramDemux) ScheduleFlush(s *session.Session) {
	d.opts.metrics.Inc(control.MetricFlushNotifies)
	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	for {
		if !s.TrafficMask().Write && s.State() == api.StateOpen {
			return
		}
		wr, ok := s.Queue().Pop()
		if !ok {
			return
		}
		b, err := payloadBytes(wr)
		if err != nil {
			wr.Promise.Fail(err)
			continue
		}
		n, err := d.pc.WriteTo(b, s.RemoteAddr())
		if err != nil {
			wr.Promise.Fail(errors.Wrap(err, "send packet"))
			continue
		}
		d.opts.metrics.Add(control.MetricBytesFlushed, int64(n))
		wr.Promise.Succeed()
	}
}

// CloseSession completes a datagram close: pending packets are dropped,
// not drained, and the peer association is removed. The shared socket
// stays open for other peers.
func (d *DatagramDemux) CloseSession(s *session.Session) {
	d.mu.Lock()
	delete(d.peers, s.RemoteAddr().String())
	d.mu.Unlock()
	d.opts.registry.Remove(s.ID())
	s.FinishClose()
	d.opts.metrics.Inc(control.MetricSessionsClosed)
}

// Stop closes the socket, which unblocks Run.
func (d *DatagramDemux) Stop() {
	if d.closed.CompareAndSwap(false, true) {
		_ = d.pc.Close()
	}
}

func (d *DatagramDemux) teardown() {
	d.mu.Lock()
	peers := make([]*session.Session, 0, len(d.peers))
	for _, s := range d.peers {
		peers = append(peers, s)
	}
	d.peers = make(map[string]*session.Session)
	d.mu.Unlock()
	for _, s := range peers {
		d.opts.registry.Remove(s.ID())
		s.FinishClose()
		d.opts.metrics.Inc(control.MetricSessionsClosed)
	}
	d.closed.Store(true)
}
