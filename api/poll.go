// File: api/poll.go
// Package api defines the readiness poller contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// EventFlags describes readiness conditions reported by a Poller.
type EventFlags uint32

const (
	EventReadable EventFlags = 1 << iota
	EventWritable
	EventError
)

// Event is one readiness notification.
type Event struct {
	FD    int
	Flags EventFlags
}

// Poller is the non-blocking readiness multiplexer owned by one demux
// loop. Registered descriptors are always armed for read; write
// interest is toggled as queues fill and drain. Wait is the loop's only
// blocking call; Wakeup interrupts it from any goroutine.
type Poller interface {
	// Register adds fd with read interest, plus write interest when
	// write is true.
	Register(fd int, write bool) error

	// Modify re-arms fd's write interest.
	Modify(fd int, write bool) error

	// Unregister removes fd.
	Unregister(fd int) error

	// Wait blocks until readiness events arrive or Wakeup is called,
	// filling events and returning the count. timeoutMs < 0 blocks
	// indefinitely.
	Wait(events []Event, timeoutMs int) (int, error)

	// Wakeup unblocks a concurrent Wait.
	Wakeup() error

	// Close releases the poller.
	Close() error
}
