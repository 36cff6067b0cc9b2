// File: filter/chain.go
// Package filter implements the session filter chain.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"sync"

	"go.uber.org/zap"

	"github.com/momentics/dirmux/api"
)

// Tail performs the chain's terminal outbound actions for one session:
// the real enqueue into the write queue and the real close protocol.
type Tail interface {
	TailWrite(wr *api.WriteRequest)
	TailClose()
}

type entry struct {
	name string
	f    api.Filter
}

// Chain is the api.FilterChain implementation bound to one session.
type Chain struct {
	sess api.Session
	tail Tail
	log  *zap.Logger

	mu       sync.Mutex // serializes edits and parking
	entries  []entry
	parked   []any      // inbound messages withheld while read is disabled
	draining bool       // a ResumeRead drain is in progress
}

var _ api.FilterChain = (*Chain)(nil)

// NewChain builds an empty chain for sess terminating at tail.
func NewChain(sess api.Session, tail Tail, log *zap.Logger) *Chain {
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{sess: sess, tail: tail, log: log}
}

// snapshot returns the entry list current at dispatch start.
func (c *Chain) snapshot() []entry {
	c.mu.Lock()
	s := c.entries
	c.mu.Unlock()
	return s
}

// edit applies fn to a copy of the entry list and installs the result.
func (c *Chain) edit(fn func([]entry) ([]entry, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]entry, len(c.entries))
	copy(cp, c.entries)
	next, err := fn(cp)
	if err != nil {
		return err
	}
	c.entries = next
	return nil
}

func (c *Chain) indexOf(list []entry, name string) int {
	for i, e := range list {
		if e.name == name {
			return i
		}
	}
	return -1
}

// AddFirst inserts a filter closest to the transport.
func (c *Chain) AddFirst(name string, f api.Filter) error {
	return c.edit(func(list []entry) ([]entry, error) {
		if c.indexOf(list, name) >= 0 {
			return nil, api.ErrFilterExists
		}
		return append([]entry{{name, f}}, list...), nil
	})
}

// AddLast inserts a filter closest to the application.
func (c *Chain) AddLast(name string, f api.Filter) error {
	return c.edit(func(list []entry) ([]entry, error) {
		if c.indexOf(list, name) >= 0 {
			return nil, api.ErrFilterExists
		}
		return append(list, entry{name, f}), nil
	})
}

// AddBefore inserts a filter before the named entry.
func (c *Chain) AddBefore(mark, name string, f api.Filter) error {
	return c.insertAt(mark, name, f, 0)
}

// AddAfter inserts a filter after the named entry.
func (c *Chain) AddAfter(mark, name string, f api.Filter) error {
	return c.insertAt(mark, name, f, 1)
}

func (c *Chain) insertAt(mark, name string, f api.Filter, off int) error {
	return c.edit(func(list []entry) ([]entry, error) {
		if c.indexOf(list, name) >= 0 {
			return nil, api.ErrFilterExists
		}
		i := c.indexOf(list, mark)
		if i < 0 {
			return nil, api.ErrFilterNotFound
		}
		i += off
		list = append(list, entry{})
		copy(list[i+1:], list[i:])
		list[i] = entry{name, f}
		return list, nil
	})
}

// Remove detaches and returns the named filter.
func (c *Chain) Remove(name string) (api.Filter, error) {
	var out api.Filter
	err := c.edit(func(list []entry) ([]entry, error) {
		i := c.indexOf(list, name)
		if i < 0 {
			return nil, api.ErrFilterNotFound
		}
		out = list[i].f
		return append(list[:i], list[i+1:]...), nil
	})
	return out, err
}

// Replace swaps the named entry's filter, returning the old one.
func (c *Chain) Replace(name string, f api.Filter) (api.Filter, error) {
	var out api.Filter
	err := c.edit(func(list []entry) ([]entry, error) {
		i := c.indexOf(list, name)
		if i < 0 {
			return nil, api.ErrFilterNotFound
		}
		out = list[i].f
		list[i] = entry{name, f}
		return list, nil
	})
	return out, err
}

// Names lists entries from transport side to application side.
func (c *Chain) Names() []string {
	snap := c.snapshot()
	names := make([]string, len(snap))
	for i, e := range snap {
		names[i] = e.name
	}
	return names
}

// FireMessageReceived starts inbound dispatch of one message, honoring
// the read traffic flag: while read is disabled, or while earlier
// arrivals are still parked, the message parks in arrival order.
func (c *Chain) FireMessageReceived(msg any) {
	if c.parkIfReadDisabled(msg) {
		return
	}
	c.dispatchMessage(msg)
}

// parkIfReadDisabled appends msg to the parked list when the read flag
// is off or a backlog already exists, reporting whether it did. Both
// conditions are checked under the same lock as the append, so a
// message fired after a re-enable can never overtake one parked before
// it. Raw byte payloads are copied: the demux recycles its read buffer
// as soon as the dispatch returns.
func (c *Chain) parkIfReadDisabled(msg any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.TrafficMask().Read && len(c.parked) == 0 {
		return false
	}
	if b, ok := msg.([]byte); ok {
		msg = append([]byte(nil), b...)
	}
	c.parked = append(c.parked, msg)
	return true
}

func (c *Chain) dispatchMessage(msg any) {
	ctx := &inboundCtx{chain: c, snap: c.snapshot(), pos: 0}
	ctx.NextMessage(msg)
}

// ResumeRead delivers parked messages in order, exactly once. Called by
// the session when the read flag flips back on. The head stays parked
// while it dispatches so that concurrent arrivals queue behind it, and
// only one drain runs at a time.
func (c *Chain) ResumeRead() {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.draining = false
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		if len(c.parked) == 0 {
			c.mu.Unlock()
			return
		}
		msg := c.parked[0]
		c.mu.Unlock()

		if !c.sess.TrafficMask().Read {
			// Mask flipped off again mid-drain; the head was never
			// removed, so nothing is lost.
			return
		}
		c.dispatchMessage(msg)

		c.mu.Lock()
		c.parked = c.parked[1:]
		c.mu.Unlock()
	}
}

// FireExceptionCaught starts inbound dispatch of an error event.
func (c *Chain) FireExceptionCaught(err error) {
	ctx := &inboundCtx{chain: c, snap: c.snapshot(), pos: 0}
	ctx.NextException(err)
}

// FireSessionClosed starts inbound dispatch of the closed event.
func (c *Chain) FireSessionClosed() {
	ctx := &inboundCtx{chain: c, snap: c.snapshot(), pos: 0}
	ctx.NextClose()
}

// FireWriteRequested starts outbound dispatch of a write.
func (c *Chain) FireWriteRequested(wr *api.WriteRequest) {
	snap := c.snapshot()
	ctx := &outboundCtx{chain: c, snap: snap, pos: len(snap) - 1}
	ctx.NextWrite(wr)
}

// FireCloseRequested starts outbound dispatch of a close.
func (c *Chain) FireCloseRequested() {
	snap := c.snapshot()
	ctx := &outboundCtx{chain: c, snap: snap, pos: len(snap) - 1}
	ctx.NextClose()
}

// inboundCtx walks the snapshot towards the application. pos is the
// index of the next filter to receive; each Next* call dispatches from
// pos without mutating this context, so a filter may inject several
// downstream events from one callback.
type inboundCtx struct {
	chain *Chain
	snap  []entry
	pos   int
}

var _ api.FilterContext = (*inboundCtx)(nil)

func (x *inboundCtx) Session() api.Session { return x.chain.sess }

func (x *inboundCtx) NextMessage(msg any) {
	if x.pos >= len(x.snap) {
		x.chain.log.Debug("message reached end of chain",
			zap.String("session", x.chain.sess.ID()))
		return
	}
	e := x.snap[x.pos]
	e.f.OnMessageReceived(&inboundCtx{chain: x.chain, snap: x.snap, pos: x.pos + 1}, msg)
}

func (x *inboundCtx) NextException(err error) {
	if x.pos >= len(x.snap) {
		// Unhandled per-session error: report and close this session
		// only. The demux loop never sees it.
		x.chain.log.Error("unhandled session exception",
			zap.String("session", x.chain.sess.ID()), zap.Error(err))
		x.chain.sess.Close()
		return
	}
	e := x.snap[x.pos]
	e.f.OnExceptionCaught(&inboundCtx{chain: x.chain, snap: x.snap, pos: x.pos + 1}, err)
}

func (x *inboundCtx) NextClose() {
	if x.pos >= len(x.snap) {
		return
	}
	e := x.snap[x.pos]
	e.f.OnSessionClosed(&inboundCtx{chain: x.chain, snap: x.snap, pos: x.pos + 1})
}

func (x *inboundCtx) NextWrite(wr *api.WriteRequest) {
	// A filter answering an inbound message writes through the
	// session, which starts a fresh outbound dispatch.
	x.chain.FireWriteRequested(wr)
}

// outboundCtx walks the snapshot towards the transport and terminates
// at the tail.
type outboundCtx struct {
	chain *Chain
	snap  []entry
	pos   int
}

var _ api.FilterContext = (*outboundCtx)(nil)

func (x *outboundCtx) Session() api.Session { return x.chain.sess }

func (x *outboundCtx) NextWrite(wr *api.WriteRequest) {
	if x.pos < 0 {
		x.chain.tail.TailWrite(wr)
		return
	}
	e := x.snap[x.pos]
	e.f.OnWriteRequested(&outboundCtx{chain: x.chain, snap: x.snap, pos: x.pos - 1}, wr)
}

func (x *outboundCtx) NextClose() {
	if x.pos < 0 {
		x.chain.tail.TailClose()
		return
	}
	e := x.snap[x.pos]
	e.f.OnCloseRequested(&outboundCtx{chain: x.chain, snap: x.snap, pos: x.pos - 1})
}

func (x *outboundCtx) NextMessage(msg any) {
	// Outbound traversal has no inbound terminal; hand the message to
	// a fresh inbound dispatch instead of dropping it.
	x.chain.FireMessageReceived(msg)
}

func (x *outboundCtx) NextException(err error) {
	x.chain.FireExceptionCaught(err)
}
