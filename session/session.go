// File: session/session.go
// Package session implements the core session handle.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/momentics/dirmux/api"
	"github.com/momentics/dirmux/filter"
)

// Manager is the demux-side owner of a session's I/O: it schedules
// flushes when the queue signals data and completes the transport side
// of the close protocol. Both methods must be safe to call from any
// goroutine.
type Manager interface {
	ScheduleFlush(s *Session)
	CloseSession(s *Session)
}

// Closer intercepts the close protocol for sessions grouped under a
// higher-level owner (a connector tracking reconnect state). The
// session's close tail dispatches here instead of the manager when the
// session is connector-owned.
type Closer interface {
	CloseSession(s *Session)
}

// Config assembles a new session.
type Config struct {
	Kind     api.TransportKind
	Owner    api.OwnerKind
	Local    net.Addr
	Remote   net.Addr
	Manager  Manager
	Delegate Closer
	Logger   *zap.Logger
}

// Traffic mask bits inside the atomic word.
const (
	maskRead  = 1 << 0
	maskWrite = 1 << 1
)

// Session is the api.Session implementation. Its lifecycle is the
// monotonic Open -> Closing -> Closed machine; past Open, new writes
// fail immediately through their futures.
type Session struct {
	id     string
	kind   api.TransportKind
	owner  api.OwnerKind
	local  net.Addr
	remote net.Addr

	state atomic.Int32
	mask  atomic.Uint32

	queue *WriteQueue
	chain *filter.Chain
	att   *attachments
	mgr   Manager
	deleg Closer
	log   *zap.Logger

	closeFut  *future
	closeOnce sync.Once
}

var _ api.Session = (*Session)(nil)
var _ filter.Tail = (*Session)(nil)

// New builds a session in the Open state with both traffic directions
// enabled and an empty filter chain.
func New(cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		id:       uuid.NewString(),
		kind:     cfg.Kind,
		owner:    cfg.Owner,
		local:    cfg.Local,
		remote:   cfg.Remote,
		queue:    NewWriteQueue(),
		att:      newAttachments(),
		mgr:      cfg.Manager,
		deleg:    cfg.Delegate,
		log:      log,
		closeFut: &future{done: make(chan struct{})},
	}
	s.mask.Store(maskRead | maskWrite)
	s.chain = filter.NewChain(s, s, log)
	return s
}

// ID returns the session identity.
func (s *Session) ID() string { return s.id }

// Kind returns the transport flavor.
func (s *Session) Kind() api.TransportKind { return s.kind }

// Owner returns the creating manager kind.
func (s *Session) Owner() api.OwnerKind { return s.owner }

// State returns the lifecycle state.
func (s *Session) State() api.SessionState {
	return api.SessionState(s.state.Load())
}

// LocalAddr returns the local endpoint.
func (s *Session) LocalAddr() net.Addr { return s.local }

// RemoteAddr returns the peer endpoint.
func (s *Session) RemoteAddr() net.Addr { return s.remote }

// FilterChain returns the chain bound to this session.
func (s *Session) FilterChain() api.FilterChain { return s.chain }

// Attachments returns the attachment slot.
func (s *Session) Attachments() api.Attachments { return s.att }

// Queue exposes the write queue to the flush path.
func (s *Session) Queue() *WriteQueue { return s.queue }

// TrafficMask returns the current flags.
func (s *Session) TrafficMask() api.TrafficMask {
	m := s.mask.Load()
	return api.TrafficMask{
		Read:  m&maskRead != 0,
		Write: m&maskWrite != 0,
	}
}

// SetTrafficMask updates the flags. Re-enabling write re-issues one
// flush notify when data is already queued, recovering the
// edge-triggered signal suppressed while the mask was off; re-enabling
// read releases parked inbound messages in order.
func (s *Session) SetTrafficMask(mask api.TrafficMask) {
	var m uint32
	if mask.Read {
		m |= maskRead
	}
	if mask.Write {
		m |= maskWrite
	}
	old := s.mask.Swap(m)

	// Len takes the queue lock after the swap above, pairing with the
	// in-lock mask sample in Enqueue: a racing write is seen by exactly
	// one side, or by both, never by neither. A doubled notify is
	// harmless, flushing an already-flushed queue is a no-op.
	if mask.Write && old&maskWrite == 0 &&
		s.State() == api.StateOpen && s.queue.Len() > 0 {
		s.mgr.ScheduleFlush(s)
	}
	if mask.Read && old&maskRead == 0 {
		s.chain.ResumeRead()
	}
}

// Write enqueues an outbound payload through the filter chain.
func (s *Session) Write(payload any) api.WriteFuture {
	switch s.State() {
	case api.StateClosing:
		return failedFuture(api.ErrSessionClosing)
	case api.StateClosed:
		return failedFuture(api.ErrSessionClosed)
	}
	f := NewPromise()
	wr := &api.WriteRequest{Payload: payload, Promise: f}
	s.chain.FireWriteRequested(wr)
	return f
}

// Close requests the close protocol. Idempotent: every call returns
// the same future, already satisfied once the session is Closed.
func (s *Session) Close() api.WriteFuture {
	if s.state.CompareAndSwap(int32(api.StateOpen), int32(api.StateClosing)) {
		s.chain.FireCloseRequested()
	}
	return s.closeFut
}

// TailWrite is the chain's terminal write action: the real enqueue.
// The state re-check under this path keeps late writes from racing a
// concurrent close into the queue unnoticed; anything that slips
// between check and drain is failed by FinishClose.
func (s *Session) TailWrite(wr *api.WriteRequest) {
	switch s.State() {
	case api.StateClosing:
		wr.Promise.Fail(api.ErrSessionClosing)
		return
	case api.StateClosed:
		wr.Promise.Fail(api.ErrSessionClosed)
		return
	}
	if s.queue.Enqueue(wr, func() bool { return s.TrafficMask().Write }) {
		s.mgr.ScheduleFlush(s)
	}
}

// TailClose is the chain's terminal close action. Connector-owned
// sessions delegate to their owner so it can coordinate closure across
// the sessions it groups; acceptor-owned sessions close through their
// manager directly.
func (s *Session) TailClose() {
	if s.owner == api.ConnectorOwned && s.deleg != nil {
		s.deleg.CloseSession(s)
		return
	}
	s.mgr.CloseSession(s)
}

// FinishClose completes the close protocol: marks the session Closed,
// fails whatever the flush path never consumed, notifies the chain and
// satisfies the close future exactly once. Safe to call repeatedly.
func (s *Session) FinishClose() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(api.StateClosed))
		for _, wr := range s.queue.Drain() {
			wr.Promise.Fail(api.ErrWriteDropped)
		}
		s.chain.FireSessionClosed()
		s.closeFut.Succeed()
		s.log.Debug("session closed", zap.String("session", s.id))
	})
}
