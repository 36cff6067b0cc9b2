// File: reactor/demux.go
// Package reactor implements the stream demux loop.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/momentics/dirmux/api"
	"github.com/momentics/dirmux/control"
	"github.com/momentics/dirmux/session"
)

// readBurst caps consecutive reads per session per readiness event so
// one chatty peer cannot starve the rest of the loop.
const readBurst = 16

// streamEntry is the loop-private per-session I/O state. Only the loop
// goroutine touches it.
type streamEntry struct {
	sess *session.Session
	conn api.Conn

	// inflight is the unsent remainder of the head write request after
	// a partial write. The head stays in the queue until fully sent.
	inflight  []byte
	wantWrite bool
}

// StreamDemux runs one event loop over a set of stream sessions. It is
// the session.Manager for every session it owns: flush notifies and
// close requests arrive as mailbox commands and are serviced on the
// loop goroutine, which is the only goroutine performing socket I/O.
type StreamDemux struct {
	poller api.Poller
	opts   options
	mail   *mailbox

	entries   map[int]*streamEntry
	bySess    map[*session.Session]*streamEntry
	listeners map[int]api.Listener

	closed atomic.Bool
}

var _ session.Manager = (*StreamDemux)(nil)

// NewStreamDemux builds a demux over poller. Run must be called for any
// I/O to happen.
func NewStreamDemux(poller api.Poller, opt ...Option) *StreamDemux {
	o := defaultOptions()
	for _, fn := range opt {
		fn(&o)
	}
	return &StreamDemux{
		poller:    poller,
		opts:      o,
		mail:      newMailbox(),
		entries:   make(map[int]*streamEntry),
		bySess:    make(map[*session.Session]*streamEntry),
		listeners: make(map[int]api.Listener),
	}
}

// Metrics returns the counter registry this loop reports into.
func (d *StreamDemux) Metrics() *control.MetricsRegistry { return d.opts.metrics }

// Registry returns the session registry this loop publishes into.
func (d *StreamDemux) Registry() *session.Registry { return d.opts.registry }

// Attach hands an established connection to the loop. The session is
// usable immediately: its chain is installed before any event can reach
// it, and writes enqueued before registration completes are flushed by
// the post-registration queue check.
func (d *StreamDemux) Attach(conn api.Conn, owner api.OwnerKind, deleg session.Closer) (*session.Session, error) {
	if d.closed.Load() {
		return nil, api.ErrDemuxClosed
	}
	s := session.New(session.Config{
		Kind:     api.TransportStream,
		Owner:    owner,
		Local:    conn.LocalAddr(),
		Remote:   conn.RemoteAddr(),
		Manager:  d,
		Delegate: deleg,
		Logger:   d.opts.log,
	})
	if d.opts.installer != nil {
		d.opts.installer(s)
	}
	d.opts.registry.Put(s)
	d.post(command{op: cmdRegister, sess: s, conn: conn})
	return s, nil
}

// AddListener arms an accepting socket on the loop.
func (d *StreamDemux) AddListener(lis api.Listener) error {
	if d.closed.Load() {
		return api.ErrDemuxClosed
	}
	d.post(command{op: cmdListen, lis: lis})
	return nil
}

// ScheduleFlush posts an edge-triggered flush notify. Called by the
// session tail on the empty-to-non-empty queue transition and on write
// re-enable; never called while data merely remains queued.
func (d *StreamDemux) ScheduleFlush(s *session.Session) {
	d.opts.metrics.Inc(control.MetricFlushNotifies)
	d.post(command{op: cmdFlush, sess: s})
}

// CloseSession posts the transport side of the close protocol.
func (d *StreamDemux) CloseSession(s *session.Session) {
	d.post(command{op: cmdClose, sess: s})
}

// Stop asks the loop to shut down. Run returns after finalizing every
// owned session.
func (d *StreamDemux) Stop() {
	d.post(command{op: cmdShutdown})
}

func (d *StreamDemux) post(cmd command) {
	d.mail.post(cmd)
	if err := d.poller.Wakeup(); err != nil && !d.closed.Load() {
		d.opts.log.Warn("poller wakeup failed", zap.Error(err))
	}
}

// Run drives the loop until Stop is called or ctx is canceled.
func (d *StreamDemux) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		d.post(command{op: cmdShutdown})
	})
	defer stop()

	events := make([]api.Event, 128)
	for {
		n, err := d.poller.Wait(events, -1)
		if err != nil {
			if d.closed.Load() {
				break
			}
			d.opts.log.Error("poller wait failed", zap.Error(err))
			return errors.Wrap(err, "poller wait")
		}
		d.mail.drain(d.apply)
		for i := 0; i < n; i++ {
			d.handleEvent(events[i])
		}
		if d.closed.Load() {
			break
		}
	}
	d.shutdown()
	return ctx.Err()
}

func (d *StreamDemux) apply(cmd command) {
	switch cmd.op {
	case cmdRegister:
		d.register(cmd.sess, cmd.conn)
	case cmdListen:
		d.addListener(cmd.lis)
	case cmdFlush:
		if e, ok := d.bySess[cmd.sess]; ok {
			d.safely(e, func() { d.flush(e) })
		}
	case cmdClose:
		if e, ok := d.bySess[cmd.sess]; ok {
			d.safely(e, func() { d.closeEntry(e) })
		} else {
			// Never registered here (registration failed or raced
			// shutdown): complete the protocol without a transport.
			cmd.sess.FinishClose()
		}
	case cmdShutdown:
		d.closed.Store(true)
	}
}

func (d *StreamDemux) register(s *session.Session, conn api.Conn) {
	e := &streamEntry{sess: s, conn: conn}
	if err := d.poller.Register(conn.FD(), false); err != nil {
		d.opts.log.Error("register failed",
			zap.String("session", s.ID()), zap.Error(err))
		_ = conn.Close()
		d.opts.registry.Remove(s.ID())
		s.FinishClose()
		return
	}
	d.entries[conn.FD()] = e
	d.bySess[s] = e
	// Writes may have been enqueued before registration; their notify
	// found no entry, so recover it here.
	if s.Queue().Len() > 0 && s.TrafficMask().Write {
		d.safely(e, func() { d.flush(e) })
	}
}

func (d *StreamDemux) addListener(lis api.Listener) {
	if err := d.poller.Register(lis.FD(), false); err != nil {
		d.opts.log.Error("listener register failed",
			zap.Stringer("addr", lis.Addr()), zap.Error(err))
		_ = lis.Close()
		return
	}
	d.listeners[lis.FD()] = lis
	d.opts.log.Info("listening", zap.Stringer("addr", lis.Addr()))
}

func (d *StreamDemux) handleEvent(ev api.Event) {
	if lis, ok := d.listeners[ev.FD]; ok {
		d.accept(lis)
		return
	}
	e, ok := d.entries[ev.FD]
	if !ok {
		return
	}
	d.safely(e, func() {
		if ev.Flags&api.EventError != 0 {
			d.fault(e, errors.New("socket error condition"))
			return
		}
		if ev.Flags&api.EventReadable != 0 {
			d.readEntry(e)
		}
		// readEntry may have torn the entry down.
		if _, live := d.entries[ev.FD]; live && ev.Flags&api.EventWritable != 0 {
			d.flush(e)
		}
	})
}

// safely isolates a panic while servicing one session: the session gets
// the failure as an exception event, the loop keeps running.
func (d *StreamDemux) safely(e *streamEntry, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.opts.log.Error("panic servicing session",
				zap.String("session", e.sess.ID()), zap.Any("panic", r))
			d.fault(e, errors.Errorf("session panic: %v", r))
		}
	}()
	fn()
}

func (d *StreamDemux) accept(lis api.Listener) {
	for {
		conn, err := lis.Accept()
		if err == api.ErrWouldBlock {
			return
		}
		if err != nil {
			d.opts.log.Warn("accept failed", zap.Error(err))
			return
		}
		s := session.New(session.Config{
			Kind:    api.TransportStream,
			Owner:   api.AcceptorOwned,
			Local:   conn.LocalAddr(),
			Remote:  conn.RemoteAddr(),
			Manager: d,
			Logger:  d.opts.log,
		})
		if d.opts.installer != nil {
			d.opts.installer(s)
		}
		d.opts.registry.Put(s)
		d.opts.metrics.Inc(control.MetricSessionsAccepted)
		d.register(s, conn)
		d.opts.log.Debug("session accepted",
			zap.String("session", s.ID()),
			zap.Stringer("remote", conn.RemoteAddr()))
	}
}

func (d *StreamDemux) readEntry(e *streamEntry) {
	for i := 0; i < readBurst; i++ {
		buf := d.opts.pool.Get(d.opts.readSize)
		n, err := e.conn.Read(buf)
		if err == api.ErrWouldBlock {
			d.opts.pool.Put(buf)
			return
		}
		if err != nil {
			d.opts.pool.Put(buf)
			d.fault(e, errors.Wrap(err, "read"))
			return
		}
		if n == 0 {
			d.opts.pool.Put(buf)
			// Peer shut the stream down; run the ordinary close
			// protocol so accepted writes still drain.
			e.sess.Close()
			return
		}
		d.opts.metrics.Add(control.MetricBytesRead, int64(n))
		// The chain copies anything it parks, so the buffer is
		// recyclable as soon as the dispatch returns.
		e.sess.FilterChain().FireMessageReceived(buf[:n:n])
		d.opts.pool.Put(buf)
	}
}

// flush drains the write queue into the socket up to its momentary
// capacity. A suspended write mask leaves the queue intact unless the
// session is closing, in which case the drain-then-close contract wins.
func (d *StreamDemux) flush(e *streamEntry) {
	s := e.sess
	if !s.TrafficMask().Write && s.State() == api.StateOpen {
		return
	}
	for {
		if e.inflight == nil {
			wr, ok := s.Queue().Peek()
			if !ok {
				d.armWrite(e, false)
				if s.State() == api.StateClosing {
					d.finalize(e)
				}
				return
			}
			b, err := payloadBytes(wr)
			if err != nil {
				s.Queue().Pop()
				wr.Promise.Fail(err)
				continue
			}
			e.inflight = b
		}
		n, err := e.conn.Write(e.inflight)
		if err == api.ErrWouldBlock {
			d.armWrite(e, true)
			return
		}
		if err != nil {
			if wr, ok := s.Queue().Pop(); ok {
				wr.Promise.Fail(err)
			}
			e.inflight = nil
			d.fault(e, errors.Wrap(err, "write"))
			return
		}
		d.opts.metrics.Add(control.MetricBytesFlushed, int64(n))
		e.inflight = e.inflight[n:]
		if len(e.inflight) == 0 {
			e.inflight = nil
			if wr, ok := s.Queue().Pop(); ok {
				wr.Promise.Succeed()
			}
		}
	}
}

func (d *StreamDemux) armWrite(e *streamEntry, want bool) {
	if e.wantWrite == want {
		return
	}
	if err := d.poller.Modify(e.conn.FD(), want); err != nil {
		d.opts.log.Warn("write re-arm failed",
			zap.String("session", e.sess.ID()), zap.Error(err))
		return
	}
	e.wantWrite = want
}

// closeEntry runs the stream close: drain what was accepted, then
// release the transport. When the socket has no capacity left the
// remainder drains on write readiness and the queue-empty check in
// flush finalizes.
func (d *StreamDemux) closeEntry(e *streamEntry) {
	if e.inflight == nil && e.sess.Queue().Len() == 0 {
		d.finalize(e)
		return
	}
	d.flush(e)
}

// fault reports a transport failure on one session and tears it down.
// Queued writes are failed, not flushed: the transport is gone.
func (d *StreamDemux) fault(e *streamEntry, err error) {
	if _, live := d.entries[e.conn.FD()]; !live {
		return
	}
	e.sess.FilterChain().FireExceptionCaught(err)
	d.finalize(e)
}

// finalize releases the transport and completes the close protocol.
func (d *StreamDemux) finalize(e *streamEntry) {
	fd := e.conn.FD()
	if _, live := d.entries[fd]; !live {
		return
	}
	delete(d.entries, fd)
	delete(d.bySess, e.sess)
	if err := d.poller.Unregister(fd); err != nil {
		d.opts.log.Debug("unregister failed",
			zap.String("session", e.sess.ID()), zap.Error(err))
	}
	_ = e.conn.Close()
	if e.inflight != nil {
		if wr, ok := e.sess.Queue().Pop(); ok {
			wr.Promise.Fail(api.ErrWriteDropped)
		}
		e.inflight = nil
	}
	d.opts.registry.Remove(e.sess.ID())
	e.sess.FinishClose()
	d.opts.metrics.Inc(control.MetricSessionsClosed)
}

// shutdown finalizes everything the loop still owns.
func (d *StreamDemux) shutdown() {
	d.closed.Store(true)
	d.mail.drain(d.apply)
	for fd, lis := range d.listeners {
		_ = d.poller.Unregister(fd)
		_ = lis.Close()
		delete(d.listeners, fd)
	}
	for _, e := range d.entries {
		d.finalize(e)
	}
	if err := d.poller.Close(); err != nil {
		d.opts.log.Warn("poller close failed", zap.Error(err))
	}
	d.opts.log.Info("demux stopped")
}

// payloadBytes resolves a queued payload to wire bytes. The codec
// normally leaves only []byte in the queue; Encodable is handled for
// sessions whose chain carries no codec.
func payloadBytes(wr *api.WriteRequest) ([]byte, error) {
	switch p := wr.Payload.(type) {
	case []byte:
		return p, nil
	case api.Encodable:
		return p.Encode()
	default:
		return nil, api.ErrNotEncodable
	}
}
