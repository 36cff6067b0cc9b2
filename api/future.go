// File: api/future.go
// Package api defines write/close completion signals.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "context"

// WriteFuture is the completion signal attached to an asynchronous
// write or close. It is satisfied exactly once.
type WriteFuture interface {
	// Done returns a channel closed when the operation completed,
	// successfully or not.
	Done() <-chan struct{}

	// Err returns the terminal error, or nil on success. Valid only
	// after Done is closed.
	Err() error

	// Await blocks until completion or context cancellation.
	Await(ctx context.Context) error
}

// WritePromise is the producer side of a WriteFuture, settled by the
// flush path or the close protocol.
type WritePromise interface {
	WriteFuture

	// Succeed marks the operation complete. No-op after the first
	// settlement.
	Succeed()

	// Fail marks the operation failed with err. No-op after the first
	// settlement.
	Fail(err error)
}

// Encodable is a protocol message that can serialize itself using the
// two-phase compute-then-encode contract. Encode allocates a buffer of
// exactly the computed total and never reallocates while writing.
type Encodable interface {
	Encode() ([]byte, error)
}

// WriteRequest is one queued outbound unit: an encoded byte slice or a
// not-yet-encoded Encodable, plus its completion promise. A request is
// consumed exactly once: fully written, or failed when the session
// closes first.
type WriteRequest struct {
	Payload any
	Promise WritePromise
}
