// File: filter/codec_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"bytes"
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/momentics/dirmux/api"
	"github.com/momentics/dirmux/message"
)

func encodeRequest(t *testing.T, entry, desc, value string) []byte {
	t.Helper()
	m := &message.CompareRequest{
		Entry:          entry,
		AttributeDesc:  desc,
		AssertionValue: []byte(value),
	}
	b, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newCodecChain(t *testing.T) (*Chain, *stubSession, *[]any, *[]error) {
	t.Helper()
	c, sess, _ := newTestChain()
	var msgs []any
	var errs []error
	var mu sync.Mutex
	if err := c.AddLast("codec", NewCodec()); err != nil {
		t.Fatal(err)
	}
	if err := c.AddLast("sink", &recordingSink{msgs: &msgs, errs: &errs, mu: &mu}); err != nil {
		t.Fatal(err)
	}
	return c, sess, &msgs, &errs
}

type recordingSink struct {
	PassThrough
	msgs *[]any
	errs *[]error
	mu   *sync.Mutex
}

func (f *recordingSink) OnMessageReceived(ctx api.FilterContext, msg any) {
	f.mu.Lock()
	*f.msgs = append(*f.msgs, msg)
	f.mu.Unlock()
}

func (f *recordingSink) OnExceptionCaught(ctx api.FilterContext, err error) {
	f.mu.Lock()
	*f.errs = append(*f.errs, err)
	f.mu.Unlock()
}

// One frame split across arbitrary read boundaries decodes exactly
// once, after the last fragment.
func TestCodecReassemblesSplitFrame(t *testing.T) {
	frame := encodeRequest(t, "cn=test", "uid", "alice")
	for cut := 1; cut < len(frame); cut++ {
		c, _, msgs, errs := newCodecChain(t)
		c.FireMessageReceived(frame[:cut])
		if len(*msgs) != 0 {
			t.Fatalf("cut=%d: decoded from a partial frame", cut)
		}
		c.FireMessageReceived(frame[cut:])
		if len(*errs) != 0 {
			t.Fatalf("cut=%d: %v", cut, (*errs)[0])
		}
		if len(*msgs) != 1 {
			t.Fatalf("cut=%d: decoded %d messages", cut, len(*msgs))
		}
		got := (*msgs)[0].(*message.CompareRequest)
		if got.Entry != "cn=test" {
			t.Fatalf("cut=%d: decoded %v", cut, got)
		}
	}
}

// One read carrying several frames produces one event per frame, in
// order.
func TestCodecSplitsBatchedFrames(t *testing.T) {
	f1 := encodeRequest(t, "cn=a", "uid", "alice")
	f2 := encodeRequest(t, "cn=b", "uid", "bob")
	f3 := encodeRequest(t, "cn=c", "uid", "carol")
	batch := bytes.Join([][]byte{f1, f2, f3}, nil)

	c, _, msgs, errs := newCodecChain(t)
	c.FireMessageReceived(batch)
	if len(*errs) != 0 {
		t.Fatal((*errs)[0])
	}
	var entries []string
	for _, m := range *msgs {
		entries = append(entries, m.(*message.CompareRequest).Entry)
	}
	if !reflect.DeepEqual(entries, []string{"cn=a", "cn=b", "cn=c"}) {
		t.Fatalf("got %v", entries)
	}
}

// A batch ending mid-frame delivers the complete frames now and the
// remainder once it completes.
func TestCodecBatchWithTrailingPartial(t *testing.T) {
	f1 := encodeRequest(t, "cn=a", "uid", "alice")
	f2 := encodeRequest(t, "cn=b", "uid", "bob")

	c, _, msgs, _ := newCodecChain(t)
	c.FireMessageReceived(append(append([]byte(nil), f1...), f2[:5]...))
	if len(*msgs) != 1 {
		t.Fatalf("decoded %d messages, want 1", len(*msgs))
	}
	c.FireMessageReceived(f2[5:])
	if len(*msgs) != 2 {
		t.Fatalf("decoded %d messages, want 2", len(*msgs))
	}
}

// The codec copies fed bytes: mutating the read buffer after dispatch
// must not corrupt a partially accumulated frame.
func TestCodecCopiesInput(t *testing.T) {
	frame := encodeRequest(t, "cn=test", "uid", "alice")
	c, _, msgs, errs := newCodecChain(t)

	first := append([]byte(nil), frame[:10]...)
	c.FireMessageReceived(first)
	for i := range first {
		first[i] = 0xFF
	}
	c.FireMessageReceived(frame[10:])
	if len(*errs) != 0 {
		t.Fatal((*errs)[0])
	}
	if len(*msgs) != 1 {
		t.Fatalf("decoded %d messages", len(*msgs))
	}
}

// Malformed input surfaces as an exception event, not a decoded
// message and not a panic.
func TestCodecMalformedInputFiresException(t *testing.T) {
	c, _, msgs, errs := newCodecChain(t)
	c.FireMessageReceived([]byte{0x6E, 0x80}) // indefinite length
	if len(*msgs) != 0 {
		t.Fatal("decoded a message from garbage")
	}
	if len(*errs) != 1 {
		t.Fatalf("got %d exceptions, want 1", len(*errs))
	}
}

// Outbound Encodable payloads become raw bytes before the tail.
func TestCodecEncodesOutbound(t *testing.T) {
	c, _, _ := newTestChain()
	tail := c.tail.(*recordTail)
	if err := c.AddLast("codec", NewCodec()); err != nil {
		t.Fatal(err)
	}
	m := &message.CompareResponse{ResultCode: message.ResultCompareTrue, MatchedDN: "cn=test"}
	want, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	c.FireWriteRequested(&api.WriteRequest{Payload: m, Promise: nopPromise{}})
	if len(tail.writes) != 1 {
		t.Fatalf("tail writes = %d", len(tail.writes))
	}
	got, ok := tail.writes[0].Payload.([]byte)
	if !ok || !bytes.Equal(got, want) {
		t.Fatalf("tail payload = %T % X", tail.writes[0].Payload, got)
	}
}

type nopPromise struct{}

func (nopPromise) Succeed()                      {}
func (nopPromise) Fail(error)                    {}
func (nopPromise) Done() <-chan struct{}         { return nil }
func (nopPromise) Err() error                    { return nil }
func (nopPromise) Await(_ context.Context) error { return nil }

// A decoded message arriving while read is disabled parks and
// redelivers once on resume.
func TestCodecParksDecodedWhileReadDisabled(t *testing.T) {
	frame := encodeRequest(t, "cn=test", "uid", "alice")
	c, sess, msgs, _ := newCodecChain(t)

	sess.SetTrafficMask(api.TrafficMask{Read: true, Write: true})
	c.FireMessageReceived(frame[:4])
	sess.SetTrafficMask(api.TrafficMask{Read: false, Write: true})
	// The rest arrives while dispatch is suppressed: the raw bytes park
	// at the chain head.
	c.FireMessageReceived(frame[4:])
	if len(*msgs) != 0 {
		t.Fatal("delivered while read disabled")
	}

	sess.SetTrafficMask(api.TrafficAll)
	c.ResumeRead()
	if len(*msgs) != 1 {
		t.Fatalf("decoded %d messages after resume", len(*msgs))
	}
	c.ResumeRead()
	if len(*msgs) != 1 {
		t.Fatal("redelivered on second resume")
	}
}
