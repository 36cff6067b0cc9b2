// File: filter/chain_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"bytes"
	"net"
	"reflect"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/momentics/dirmux/api"
)

// stubSession is the minimal api.Session the chain needs: identity and
// a mutable traffic mask.
type stubSession struct {
	mu     sync.Mutex
	mask   api.TrafficMask
	chain  *Chain
	closed bool
}

func newStubSession() *stubSession {
	return &stubSession{mask: api.TrafficAll}
}

func (s *stubSession) ID() string                   { return "stub" }
func (s *stubSession) Kind() api.TransportKind      { return api.TransportStream }
func (s *stubSession) Owner() api.OwnerKind         { return api.AcceptorOwned }
func (s *stubSession) State() api.SessionState      { return api.StateOpen }
func (s *stubSession) LocalAddr() net.Addr          { return nil }
func (s *stubSession) RemoteAddr() net.Addr         { return nil }
func (s *stubSession) FilterChain() api.FilterChain { return s.chain }
func (s *stubSession) Attachments() api.Attachments { return nil }

func (s *stubSession) TrafficMask() api.TrafficMask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mask
}

func (s *stubSession) SetTrafficMask(m api.TrafficMask) {
	s.mu.Lock()
	s.mask = m
	s.mu.Unlock()
}

func (s *stubSession) Write(payload any) api.WriteFuture { return nil }

func (s *stubSession) Close() api.WriteFuture {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// recordTail records terminal actions.
type recordTail struct {
	mu     sync.Mutex
	writes []*api.WriteRequest
	closes int
}

func (t *recordTail) TailWrite(wr *api.WriteRequest) {
	t.mu.Lock()
	t.writes = append(t.writes, wr)
	t.mu.Unlock()
}

func (t *recordTail) TailClose() {
	t.mu.Lock()
	t.closes++
	t.mu.Unlock()
}

// tracer appends its name to a shared log on every event it sees.
type tracer struct {
	PassThrough
	name string
	log  *[]string
	mu   *sync.Mutex
}

func (f *tracer) trace(event string) {
	f.mu.Lock()
	*f.log = append(*f.log, f.name+":"+event)
	f.mu.Unlock()
}

func (f *tracer) OnMessageReceived(ctx api.FilterContext, msg any) {
	f.trace("msg")
	ctx.NextMessage(msg)
}

func (f *tracer) OnWriteRequested(ctx api.FilterContext, wr *api.WriteRequest) {
	f.trace("write")
	ctx.NextWrite(wr)
}

func (f *tracer) OnCloseRequested(ctx api.FilterContext) {
	f.trace("closereq")
	ctx.NextClose()
}

func (f *tracer) OnSessionClosed(ctx api.FilterContext) {
	f.trace("closed")
	ctx.NextClose()
}

func newTestChain() (*Chain, *stubSession, *recordTail) {
	sess := newStubSession()
	tail := &recordTail{}
	c := NewChain(sess, tail, nil)
	sess.chain = c
	return c, sess, tail
}

func TestInboundOrderTransportToApplication(t *testing.T) {
	c, _, _ := newTestChain()
	var log []string
	var mu sync.Mutex
	for _, name := range []string{"a", "b", "c"} {
		if err := c.AddLast(name, &tracer{name: name, log: &log, mu: &mu}); err != nil {
			t.Fatal(err)
		}
	}
	c.FireMessageReceived("hello")
	want := []string{"a:msg", "b:msg", "c:msg"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("got %v, want %v", log, want)
	}
}

func TestOutboundOrderApplicationToTransport(t *testing.T) {
	c, _, tail := newTestChain()
	var log []string
	var mu sync.Mutex
	for _, name := range []string{"a", "b", "c"} {
		if err := c.AddLast(name, &tracer{name: name, log: &log, mu: &mu}); err != nil {
			t.Fatal(err)
		}
	}
	wr := &api.WriteRequest{Payload: []byte("x")}
	c.FireWriteRequested(wr)
	want := []string{"c:write", "b:write", "a:write"}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("got %v, want %v", log, want)
	}
	if len(tail.writes) != 1 || tail.writes[0] != wr {
		t.Fatal("write did not reach the tail")
	}
}

func TestChainEdits(t *testing.T) {
	c, _, _ := newTestChain()
	noop := PassThrough{}
	if err := c.AddLast("b", noop); err != nil {
		t.Fatal(err)
	}
	if err := c.AddFirst("a", noop); err != nil {
		t.Fatal(err)
	}
	if err := c.AddAfter("b", "d", noop); err != nil {
		t.Fatal(err)
	}
	if err := c.AddBefore("d", "c", noop); err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(c.Names(), want) {
		t.Fatalf("names = %v, want %v", c.Names(), want)
	}

	if err := c.AddLast("a", noop); err != api.ErrFilterExists {
		t.Fatalf("duplicate add: got %v", err)
	}
	if err := c.AddBefore("zz", "e", noop); err != api.ErrFilterNotFound {
		t.Fatalf("missing mark: got %v", err)
	}

	if _, err := c.Remove("b"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Remove("b"); err != api.ErrFilterNotFound {
		t.Fatalf("double remove: got %v", err)
	}
	if _, err := c.Replace("c", noop); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.Names(), []string{"a", "c", "d"}) {
		t.Fatalf("names = %v", c.Names())
	}
}

// A dispatch in flight keeps using the entry list it started with; a
// concurrent removal affects later dispatches only.
func TestDispatchUsesSnapshot(t *testing.T) {
	c, _, _ := newTestChain()
	var log []string
	var mu sync.Mutex

	remover := &removeDuring{chain: c, victim: "b"}
	if err := c.AddLast("a", remover); err != nil {
		t.Fatal(err)
	}
	if err := c.AddLast("b", &tracer{name: "b", log: &log, mu: &mu}); err != nil {
		t.Fatal(err)
	}

	c.FireMessageReceived("first")
	if !reflect.DeepEqual(log, []string{"b:msg"}) {
		t.Fatalf("first dispatch = %v, want [b:msg]", log)
	}
	c.FireMessageReceived("second")
	if !reflect.DeepEqual(log, []string{"b:msg"}) {
		t.Fatalf("second dispatch saw removed filter: %v", log)
	}
}

// removeDuring removes victim from the chain mid-dispatch and then
// forwards the message.
type removeDuring struct {
	PassThrough
	chain  *Chain
	victim string
}

func (f *removeDuring) OnMessageReceived(ctx api.FilterContext, msg any) {
	_, _ = f.chain.Remove(f.victim)
	ctx.NextMessage(msg)
}

// A filter may inject several downstream events from one callback; each
// continues from the filter's own position.
type splitter struct {
	PassThrough
}

func (splitter) OnMessageReceived(ctx api.FilterContext, msg any) {
	ctx.NextMessage("one")
	ctx.NextMessage("two")
}

func TestFilterInjectsMultipleEvents(t *testing.T) {
	c, _, _ := newTestChain()
	var got []any
	var mu sync.Mutex
	if err := c.AddLast("split", splitter{}); err != nil {
		t.Fatal(err)
	}
	if err := c.AddLast("sink", &sink{got: &got, mu: &mu}); err != nil {
		t.Fatal(err)
	}
	c.FireMessageReceived("ignored")
	if !reflect.DeepEqual(got, []any{"one", "two"}) {
		t.Fatalf("got %v", got)
	}
}

type sink struct {
	PassThrough
	got *[]any
	mu  *sync.Mutex
}

func (f *sink) OnMessageReceived(ctx api.FilterContext, msg any) {
	f.mu.Lock()
	*f.got = append(*f.got, msg)
	f.mu.Unlock()
}

// Messages arriving while read is disabled park, then redeliver in
// order, exactly once, on resume.
func TestReadDisableParksAndResumes(t *testing.T) {
	c, sess, _ := newTestChain()
	var got []any
	var mu sync.Mutex
	if err := c.AddLast("sink", &sink{got: &got, mu: &mu}); err != nil {
		t.Fatal(err)
	}

	sess.SetTrafficMask(api.TrafficMask{Read: false, Write: true})
	c.FireMessageReceived("m1")
	c.FireMessageReceived("m2")
	if len(got) != 0 {
		t.Fatalf("delivered %v while read disabled", got)
	}

	sess.SetTrafficMask(api.TrafficAll)
	c.ResumeRead()
	if !reflect.DeepEqual(got, []any{"m1", "m2"}) {
		t.Fatalf("got %v, want [m1 m2]", got)
	}

	// A second resume must not redeliver.
	c.ResumeRead()
	if len(got) != 2 {
		t.Fatalf("redelivered: %v", got)
	}
}

// Disabling read again mid-drain stops delivery and re-parks the rest.
type disableAfterFirst struct {
	PassThrough
	sess *stubSession
}

func (f *disableAfterFirst) OnMessageReceived(ctx api.FilterContext, msg any) {
	f.sess.SetTrafficMask(api.TrafficMask{Read: false, Write: true})
	ctx.NextMessage(msg)
}

func TestResumeStopsWhenReadDisabledAgain(t *testing.T) {
	c, sess, _ := newTestChain()
	var got []any
	var mu sync.Mutex
	if err := c.AddLast("disable", &disableAfterFirst{sess: sess}); err != nil {
		t.Fatal(err)
	}
	if err := c.AddLast("sink", &sink{got: &got, mu: &mu}); err != nil {
		t.Fatal(err)
	}

	sess.SetTrafficMask(api.TrafficMask{Read: false, Write: true})
	c.FireMessageReceived("m1")
	c.FireMessageReceived("m2")

	sess.SetTrafficMask(api.TrafficAll)
	c.ResumeRead()
	if !reflect.DeepEqual(got, []any{"m1"}) {
		t.Fatalf("got %v, want [m1]", got)
	}

	sess.SetTrafficMask(api.TrafficAll)
	c.ResumeRead()
	if !reflect.DeepEqual(got, []any{"m1", "m2"}) {
		t.Fatalf("got %v, want [m1 m2]", got)
	}
}

// A message fired after read re-enable but before the backlog drains
// must queue behind the parked messages, not overtake them.
func TestArrivalAfterReEnableQueuesBehindBacklog(t *testing.T) {
	c, sess, _ := newTestChain()
	var got []any
	var mu sync.Mutex
	if err := c.AddLast("sink", &sink{got: &got, mu: &mu}); err != nil {
		t.Fatal(err)
	}

	sess.SetTrafficMask(api.TrafficMask{Read: false, Write: true})
	c.FireMessageReceived("m1")
	sess.SetTrafficMask(api.TrafficAll)

	// The drain has not run yet; a fresh arrival may not jump the queue.
	c.FireMessageReceived("m2")
	mu.Lock()
	early := len(got)
	mu.Unlock()
	if early != 0 {
		t.Fatalf("delivered %v ahead of parked backlog", got)
	}

	c.ResumeRead()
	if !reflect.DeepEqual(got, []any{"m1", "m2"}) {
		t.Fatalf("delivery order %v, want [m1 m2]", got)
	}
}

// injectOnce fires one extra message into the chain entry the first
// time it sees a message, mimicking a transport read landing mid-drain.
type injectOnce struct {
	PassThrough
	chain *Chain
	done  bool
}

func (f *injectOnce) OnMessageReceived(ctx api.FilterContext, msg any) {
	if !f.done {
		f.done = true
		f.chain.FireMessageReceived("late")
	}
	ctx.NextMessage(msg)
}

func TestArrivalMidDrainQueuesBehindBacklog(t *testing.T) {
	c, sess, _ := newTestChain()
	var got []any
	var mu sync.Mutex
	if err := c.AddLast("inject", &injectOnce{chain: c}); err != nil {
		t.Fatal(err)
	}
	if err := c.AddLast("sink", &sink{got: &got, mu: &mu}); err != nil {
		t.Fatal(err)
	}

	sess.SetTrafficMask(api.TrafficMask{Read: false, Write: true})
	c.FireMessageReceived("m1")
	c.FireMessageReceived("m2")

	sess.SetTrafficMask(api.TrafficAll)
	c.ResumeRead()
	if !reflect.DeepEqual(got, []any{"m1", "m2", "late"}) {
		t.Fatalf("delivery order %v, want [m1 m2 late]", got)
	}
}

// Raw bytes park as a private copy: the demux recycles its read buffer
// the moment the dispatch returns, and a pooled reuse must not reach
// bytes awaiting redelivery.
func TestParkedRawBytesSurviveBufferReuse(t *testing.T) {
	c, sess, _ := newTestChain()
	var got []any
	var mu sync.Mutex
	if err := c.AddLast("sink", &sink{got: &got, mu: &mu}); err != nil {
		t.Fatal(err)
	}

	buf := []byte("payload")
	sess.SetTrafficMask(api.TrafficMask{Read: false, Write: true})
	c.FireMessageReceived(buf)
	copy(buf, "garbage")

	sess.SetTrafficMask(api.TrafficAll)
	c.ResumeRead()
	if len(got) != 1 || !bytes.Equal(got[0].([]byte), []byte("payload")) {
		t.Fatalf("parked bytes corrupted: %q", got)
	}
}

// An exception nobody handles closes only the owning session.
func TestUnhandledExceptionClosesSession(t *testing.T) {
	c, sess, _ := newTestChain()
	c.FireExceptionCaught(errors.New("boom"))
	sess.mu.Lock()
	closed := sess.closed
	sess.mu.Unlock()
	if !closed {
		t.Fatal("session not closed after unhandled exception")
	}
}

func TestCloseRequestReachesTail(t *testing.T) {
	c, _, tail := newTestChain()
	if err := c.AddLast("noop", PassThrough{}); err != nil {
		t.Fatal(err)
	}
	c.FireCloseRequested()
	if tail.closes != 1 {
		t.Fatalf("tail closes = %d, want 1", tail.closes)
	}
}

// The outbound close request and the inbound closed notification are
// distinct callbacks: a filter sees each exactly once per close.
func TestCloseRequestDistinctFromClosedNotification(t *testing.T) {
	c, _, tail := newTestChain()
	var log []string
	var mu sync.Mutex
	if err := c.AddLast("a", &tracer{name: "a", log: &log, mu: &mu}); err != nil {
		t.Fatal(err)
	}

	c.FireCloseRequested()
	if !reflect.DeepEqual(log, []string{"a:closereq"}) {
		t.Fatalf("after request: %v, want [a:closereq]", log)
	}
	if tail.closes != 1 {
		t.Fatalf("tail closes = %d, want 1", tail.closes)
	}

	c.FireSessionClosed()
	if !reflect.DeepEqual(log, []string{"a:closereq", "a:closed"}) {
		t.Fatalf("after completion: %v", log)
	}
}
