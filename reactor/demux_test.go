// File: reactor/demux_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/momentics/dirmux/api"
	"github.com/momentics/dirmux/control"
	"github.com/momentics/dirmux/fake"
	"github.com/momentics/dirmux/filter"
	"github.com/momentics/dirmux/message"
	"github.com/momentics/dirmux/session"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func await(t *testing.T, f api.WriteFuture) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := f.Await(ctx)
	if err == context.DeadlineExceeded {
		t.Fatal("future never settled")
	}
	return err
}

// startDemux runs d until the test ends.
func startDemux(t *testing.T, d *StreamDemux) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(context.Background())
	}()
	t.Cleanup(func() {
		d.Stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("demux did not stop")
		}
	})
}

// Writes enqueued back to back ride a single notify and come out as
// one ordered byte stream.
func TestFlushCoalescesQueuedWrites(t *testing.T) {
	poller := fake.NewPoller()
	metrics := control.NewMetricsRegistry()
	d := NewStreamDemux(poller, WithMetrics(metrics))

	conn := fake.NewConn(3)
	s, err := d.Attach(conn, api.AcceptorOwned, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Enqueue before the loop starts: the queue never drains between
	// writes, so only the first one edges.
	p1 := bytes.Repeat([]byte{'a'}, 10)
	p2 := bytes.Repeat([]byte{'b'}, 20)
	p3 := bytes.Repeat([]byte{'c'}, 5)
	f1 := s.Write(p1)
	f2 := s.Write(p2)
	f3 := s.Write(p3)

	startDemux(t, d)

	for _, f := range []api.WriteFuture{f1, f2, f3} {
		if err := await(t, f); err != nil {
			t.Fatalf("write future: %v", err)
		}
	}

	want := append(append(append([]byte(nil), p1...), p2...), p3...)
	if got := conn.Written(); !bytes.Equal(got, want) {
		t.Fatalf("wrote %d bytes %q, want %d bytes", len(got), got, len(want))
	}
	if got := metrics.Get(control.MetricFlushNotifies); got != 1 {
		t.Fatalf("flush notifies = %d, want 1", got)
	}
	if got := metrics.Get(control.MetricBytesFlushed); got != 35 {
		t.Fatalf("bytes flushed = %d, want 35", got)
	}
}

// A partial write keeps the request at the head, arms write readiness
// and resumes from the unsent remainder.
func TestPartialWriteResumesOnWritable(t *testing.T) {
	poller := fake.NewPoller()
	d := NewStreamDemux(poller)

	conn := fake.NewConn(3)
	conn.ScriptWrites(4, 0) // 4 bytes now, then one EAGAIN
	s, err := d.Attach(conn, api.AcceptorOwned, nil)
	if err != nil {
		t.Fatal(err)
	}
	startDemux(t, d)

	payload := []byte("0123456789")
	f := s.Write(payload)

	waitFor(t, "write interest armed", func() bool {
		_, write := poller.Registered(conn.FD())
		return write
	})
	if got := conn.Written(); !bytes.Equal(got, payload[:4]) {
		t.Fatalf("partial write = %q", got)
	}

	poller.Inject(api.Event{FD: conn.FD(), Flags: api.EventWritable})
	if err := await(t, f); err != nil {
		t.Fatalf("write future: %v", err)
	}
	if got := conn.Written(); !bytes.Equal(got, payload) {
		t.Fatalf("final bytes = %q", got)
	}

	// Queue drained: write interest drops again.
	waitFor(t, "write interest disarmed", func() bool {
		ok, write := poller.Registered(conn.FD())
		return ok && !write
	})
}

// A read failure tears down only the failing session; its neighbor
// keeps working.
func TestFaultIsolatedToOneSession(t *testing.T) {
	poller := fake.NewPoller()
	d := NewStreamDemux(poller)

	bad := fake.NewConn(3)
	good := fake.NewConn(4)
	sBad, err := d.Attach(bad, api.AcceptorOwned, nil)
	if err != nil {
		t.Fatal(err)
	}
	sGood, err := d.Attach(good, api.AcceptorOwned, nil)
	if err != nil {
		t.Fatal(err)
	}
	startDemux(t, d)

	bad.FailReads(errors.New("torn cable"))
	poller.Inject(api.Event{FD: bad.FD(), Flags: api.EventReadable})

	if err := await(t, sBad.Close()); err != nil {
		t.Fatalf("bad session close: %v", err)
	}
	if sBad.State() != api.StateClosed {
		t.Fatalf("bad session state = %v", sBad.State())
	}
	if !bad.Closed() {
		t.Fatal("failing conn not released")
	}

	f := sGood.Write([]byte("still here"))
	if err := await(t, f); err != nil {
		t.Fatalf("good session write: %v", err)
	}
	if !bytes.Equal(good.Written(), []byte("still here")) {
		t.Fatalf("good session wrote %q", good.Written())
	}
}

// Close drains accepted writes before releasing the transport, even
// when the socket momentarily has no capacity.
func TestCloseDrainsThenReleases(t *testing.T) {
	poller := fake.NewPoller()
	d := NewStreamDemux(poller)

	conn := fake.NewConn(3)
	conn.ScriptWrites(0, 0) // both flush attempts block first
	s, err := d.Attach(conn, api.AcceptorOwned, nil)
	if err != nil {
		t.Fatal(err)
	}
	startDemux(t, d)

	f := s.Write([]byte("must arrive"))
	cf := s.Close()

	waitFor(t, "write interest armed", func() bool {
		_, write := poller.Registered(conn.FD())
		return write
	})
	poller.Inject(api.Event{FD: conn.FD(), Flags: api.EventWritable})

	if err := await(t, f); err != nil {
		t.Fatalf("accepted write failed: %v", err)
	}
	if err := await(t, cf); err != nil {
		t.Fatalf("close future: %v", err)
	}
	if !bytes.Equal(conn.Written(), []byte("must arrive")) {
		t.Fatalf("wrote %q", conn.Written())
	}
	if !conn.Closed() {
		t.Fatal("transport not released after drain")
	}
}

// Writes enqueued after Close was requested fail; they were never
// accepted into the drain set.
func TestWriteAfterCloseIsRefused(t *testing.T) {
	poller := fake.NewPoller()
	d := NewStreamDemux(poller)

	conn := fake.NewConn(3)
	conn.ScriptWrites(0)
	s, err := d.Attach(conn, api.AcceptorOwned, nil)
	if err != nil {
		t.Fatal(err)
	}
	startDemux(t, d)

	accepted := s.Write([]byte("early"))
	s.Close()

	late := s.Write([]byte("late"))
	if err := await(t, late); err != api.ErrSessionClosing && err != api.ErrSessionClosed {
		t.Fatalf("late write: %v", err)
	}

	poller.Inject(api.Event{FD: conn.FD(), Flags: api.EventWritable})
	if err := await(t, accepted); err != nil {
		t.Fatalf("accepted write: %v", err)
	}
	if !bytes.Equal(conn.Written(), []byte("early")) {
		t.Fatalf("wrote %q", conn.Written())
	}
}

// Peer shutdown runs the ordinary close protocol.
func TestPeerEOFClosesSession(t *testing.T) {
	poller := fake.NewPoller()
	d := NewStreamDemux(poller)

	conn := fake.NewConn(3)
	s, err := d.Attach(conn, api.AcceptorOwned, nil)
	if err != nil {
		t.Fatal(err)
	}
	startDemux(t, d)

	conn.FeedEOF()
	poller.Inject(api.Event{FD: conn.FD(), Flags: api.EventReadable})

	if err := await(t, s.Close()); err != nil {
		t.Fatalf("close future: %v", err)
	}
	waitFor(t, "conn released", conn.Closed)
}

// The acceptor drains the whole backlog per readiness event and every
// accepted session gets the installed chain.
func TestAcceptInstallsSessions(t *testing.T) {
	poller := fake.NewPoller()
	metrics := control.NewMetricsRegistry()
	registry := session.NewRegistry(0)

	var mu sync.Mutex
	installed := 0
	d := NewStreamDemux(poller,
		WithMetrics(metrics),
		WithRegistry(registry),
		WithChainInstaller(func(s api.Session) {
			mu.Lock()
			installed++
			mu.Unlock()
			_ = s.FilterChain().AddLast("codec", filter.NewCodec())
		}))

	lis := fake.NewListener(9)
	lis.Offer(fake.NewConn(10))
	lis.Offer(fake.NewConn(11))
	if err := d.AddListener(lis); err != nil {
		t.Fatal(err)
	}
	startDemux(t, d)

	waitFor(t, "listener registered", func() bool {
		ok, _ := poller.Registered(9)
		return ok
	})
	poller.Inject(api.Event{FD: 9, Flags: api.EventReadable})

	waitFor(t, "sessions accepted", func() bool {
		return registry.Len() == 2
	})
	if got := metrics.Get(control.MetricSessionsAccepted); got != 2 {
		t.Fatalf("accepted = %d, want 2", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if installed != 2 {
		t.Fatalf("installer ran %d times, want 2", installed)
	}
}

// Bytes split across reads come out of the codec as whole messages, and
// the response path encodes back to the wire.
func TestInboundDecodeAndReply(t *testing.T) {
	poller := fake.NewPoller()

	var mu sync.Mutex
	var decoded []*message.CompareRequest
	d := NewStreamDemux(poller, WithChainInstaller(func(s api.Session) {
		_ = s.FilterChain().AddLast("codec", filter.NewCodec())
		_ = s.FilterChain().AddLast("reply", replyFilter{decoded: &decoded, mu: &mu})
	}))

	conn := fake.NewConn(3)
	s, err := d.Attach(conn, api.AcceptorOwned, nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = s
	startDemux(t, d)

	req := &message.CompareRequest{Entry: "cn=test", AttributeDesc: "uid", AssertionValue: []byte("alice")}
	frame, err := req.Encode()
	if err != nil {
		t.Fatal(err)
	}

	conn.FeedRead(frame[:9])
	poller.Inject(api.Event{FD: conn.FD(), Flags: api.EventReadable})
	time.Sleep(5 * time.Millisecond)
	mu.Lock()
	early := len(decoded)
	mu.Unlock()
	if early != 0 {
		t.Fatal("decoded from a partial frame")
	}

	conn.FeedRead(frame[9:])
	poller.Inject(api.Event{FD: conn.FD(), Flags: api.EventReadable})

	waitFor(t, "request decoded", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(decoded) == 1
	})
	mu.Lock()
	got := decoded[0]
	mu.Unlock()
	if got.Entry != "cn=test" || got.AttributeDesc != "uid" {
		t.Fatalf("decoded %v", got)
	}

	// The reply filter answered through the session; the response frame
	// lands on the wire encoded.
	wantResp, err := (&message.CompareResponse{
		ResultCode: message.ResultCompareTrue,
		MatchedDN:  "cn=test",
	}).Encode()
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, "response flushed", func() bool {
		return bytes.Equal(conn.Written(), wantResp)
	})
}

// replyFilter answers each decoded request with compareTrue.
type replyFilter struct {
	filter.PassThrough
	decoded *[]*message.CompareRequest
	mu      *sync.Mutex
}

func (f replyFilter) OnMessageReceived(ctx api.FilterContext, msg any) {
	req, ok := msg.(*message.CompareRequest)
	if !ok {
		ctx.NextMessage(msg)
		return
	}
	f.mu.Lock()
	*f.decoded = append(*f.decoded, req)
	f.mu.Unlock()
	ctx.Session().Write(&message.CompareResponse{
		ResultCode: message.ResultCompareTrue,
		MatchedDN:  req.Entry,
	})
}

// Disabling read withholds delivery without losing data; re-enabling
// redelivers in order exactly once.
func TestReadMaskParksInboundAtLoop(t *testing.T) {
	poller := fake.NewPoller()

	var mu sync.Mutex
	var got [][]byte
	d := NewStreamDemux(poller, WithChainInstaller(func(s api.Session) {
		_ = s.FilterChain().AddLast("sink", byteSink{got: &got, mu: &mu})
	}))

	conn := fake.NewConn(3)
	s, err := d.Attach(conn, api.AcceptorOwned, nil)
	if err != nil {
		t.Fatal(err)
	}
	startDemux(t, d)

	s.SetTrafficMask(api.TrafficMask{Read: false, Write: true})
	conn.FeedRead([]byte("first"))
	conn.FeedRead([]byte("second"))
	poller.Inject(api.Event{FD: conn.FD(), Flags: api.EventReadable})

	time.Sleep(5 * time.Millisecond)
	mu.Lock()
	early := len(got)
	mu.Unlock()
	if early != 0 {
		t.Fatal("delivered while read disabled")
	}

	s.SetTrafficMask(api.TrafficAll)
	waitFor(t, "parked messages redelivered", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})
	mu.Lock()
	defer mu.Unlock()
	if !bytes.Equal(got[0], []byte("first")) || !bytes.Equal(got[1], []byte("second")) {
		t.Fatalf("order broken: %q", got)
	}
}

type byteSink struct {
	filter.PassThrough
	got *[][]byte
	mu  *sync.Mutex
}

func (f byteSink) OnMessageReceived(ctx api.FilterContext, msg any) {
	b, ok := msg.([]byte)
	if !ok {
		ctx.NextMessage(msg)
		return
	}
	f.mu.Lock()
	*f.got = append(*f.got, append([]byte(nil), b...))
	f.mu.Unlock()
}

// Stopping the demux fails whatever was still queued and settles every
// close future.
func TestStopFinalizesOwnedSessions(t *testing.T) {
	poller := fake.NewPoller()
	d := NewStreamDemux(poller)

	conn := fake.NewConn(3)
	conn.ScriptWrites(0)
	s, err := d.Attach(conn, api.AcceptorOwned, nil)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = d.Run(context.Background())
	}()

	f := s.Write([]byte("never sent"))
	waitFor(t, "write interest armed", func() bool {
		_, write := poller.Registered(conn.FD())
		return write
	})

	d.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("demux did not stop")
	}

	if err := await(t, f); err != api.ErrWriteDropped {
		t.Fatalf("queued write after stop: %v", err)
	}
	if s.State() != api.StateClosed {
		t.Fatalf("state = %v, want closed", s.State())
	}
	if _, err := d.Attach(fake.NewConn(5), api.AcceptorOwned, nil); err != api.ErrDemuxClosed {
		t.Fatalf("attach after stop: %v", err)
	}
}
