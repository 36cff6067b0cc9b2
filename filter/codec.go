// File: filter/codec.go
// Package filter implements the protocol codec filter.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"github.com/pkg/errors"

	"github.com/momentics/dirmux/api"
	"github.com/momentics/dirmux/message"
)

// Codec translates between raw byte reads and protocol messages.
//
// Inbound, it accumulates bytes across reads and injects one decoded
// message per complete frame: zero events when a frame is still
// partial, several when one read carries multiple frames. Outbound, it
// encodes Encodable payloads so the tail only ever queues raw bytes.
//
// A Codec instance is bound to one session, like the chain holding it.
type Codec struct {
	PassThrough
	acc []byte
}

// NewCodec returns a codec filter for one session's chain.
func NewCodec() *Codec {
	return &Codec{}
}

// OnMessageReceived consumes raw []byte events; anything already
// decoded passes through untouched.
func (c *Codec) OnMessageReceived(ctx api.FilterContext, msg any) {
	raw, ok := msg.([]byte)
	if !ok {
		ctx.NextMessage(msg)
		return
	}
	// The read buffer is only valid during this dispatch; accumulate
	// into codec-owned storage.
	c.acc = append(c.acc, raw...)

	for {
		n, err := message.FrameLength(c.acc)
		if err == message.ErrIncompleteFrame {
			return
		}
		if err != nil {
			c.acc = nil
			ctx.NextException(errors.Wrap(err, "frame"))
			return
		}
		frame := c.acc[:n]
		decoded, err := message.Decode(frame)
		rest := c.acc[n:]
		c.acc = append([]byte(nil), rest...)
		if err != nil {
			c.acc = nil
			ctx.NextException(errors.Wrap(err, "decode"))
			return
		}
		// Read may have been disabled between frames of one batch; a
		// parked message is redelivered once, in order, on resume.
		if ic, ok := ctx.(*inboundCtx); ok && ic.chain.parkIfReadDisabled(decoded) {
			continue
		}
		ctx.NextMessage(decoded)
	}
}

// OnWriteRequested encodes message payloads into raw bytes. Encoding
// failures settle the write's promise and stop propagation; a broken
// message never reaches the queue.
func (c *Codec) OnWriteRequested(ctx api.FilterContext, wr *api.WriteRequest) {
	if enc, ok := wr.Payload.(api.Encodable); ok {
		b, err := enc.Encode()
		if err != nil {
			wr.Promise.Fail(err)
			return
		}
		wr.Payload = b
	}
	ctx.NextWrite(wr)
}
