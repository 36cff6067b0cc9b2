// File: api/session.go
// Package api defines the session contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "net"

// Attachments is the per-session key/value slot used by upper layers
// to hang protocol-session state off a transport session. All methods
// are safe for concurrent use.
type Attachments interface {
	Set(key string, value any)
	Get(key string) (any, bool)
	Delete(key string)
	Keys() []string
}

// Session is the stateful handle representing one connection or
// datagram association. It owns its write queue, traffic mask, filter
// chain instance and close coordination with its managing demux.
//
// Write, Close, SetTrafficMask and chain edits are non-blocking and
// safe to call from any goroutine concurrently with the demux loop.
type Session interface {
	// ID is an opaque identity unique for the session's lifetime.
	ID() string

	// Kind reports the transport flavor of this session.
	Kind() TransportKind

	// Owner reports which manager kind created this session.
	Owner() OwnerKind

	// State returns the current lifecycle state.
	State() SessionState

	// LocalAddr returns the local endpoint, if known.
	LocalAddr() net.Addr

	// RemoteAddr returns the peer endpoint, if known.
	RemoteAddr() net.Addr

	// FilterChain returns the chain bound to this session.
	FilterChain() FilterChain

	// Write enqueues an outbound payload ([]byte or Encodable) through
	// the filter chain. Writes submitted past Open fail immediately
	// through the returned future.
	Write(payload any) WriteFuture

	// Close requests the close protocol. Idempotent: repeated calls
	// return the same future, already satisfied once closed.
	Close() WriteFuture

	// SetTrafficMask updates the read/write enable flags. Re-enabling
	// write re-arms a flush if data is pending; re-enabling read
	// releases parked inbound messages in order.
	SetTrafficMask(mask TrafficMask)

	// TrafficMask returns the current flags.
	TrafficMask() TrafficMask

	// Attachments returns the session's attachment slot.
	Attachments() Attachments
}
