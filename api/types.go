// File: api/types.go
// Package api defines session taxonomy types.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// TransportKind distinguishes stream connections from datagram
// associations.
type TransportKind int

const (
	TransportStream TransportKind = iota
	TransportDatagram
)

// String returns a readable transport name.
func (k TransportKind) String() string {
	switch k {
	case TransportStream:
		return "stream"
	case TransportDatagram:
		return "datagram"
	default:
		return "unknown"
	}
}

// OwnerKind records which kind of manager created a session. The close
// protocol dispatches on this tag: connector-owned sessions delegate
// closure to their owning connector, acceptor-owned sessions complete
// locally.
type OwnerKind int

const (
	AcceptorOwned OwnerKind = iota
	ConnectorOwned
)

// String returns a readable owner name.
func (k OwnerKind) String() string {
	switch k {
	case AcceptorOwned:
		return "acceptor"
	case ConnectorOwned:
		return "connector"
	default:
		return "unknown"
	}
}

// SessionState is the monotonic lifecycle state of a session.
// Transitions are Open -> Closing -> Closed, never backwards.
type SessionState int32

const (
	StateOpen SessionState = iota
	StateClosing
	StateClosed
)

// String returns a readable state name.
func (s SessionState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TrafficMask holds the per-session read/write enable flags used for
// backpressure. Disabling write suspends flushing without touching the
// socket; disabling read withholds delivery of decoded messages.
type TrafficMask struct {
	Read  bool
	Write bool
}

// TrafficAll is the default mask: both directions enabled.
var TrafficAll = TrafficMask{Read: true, Write: true}
