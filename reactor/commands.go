// File: reactor/commands.go
// Package reactor implements the loop command mailbox.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/dirmux/api"
	"github.com/momentics/dirmux/session"
)

type cmdOp int

const (
	cmdRegister cmdOp = iota
	cmdListen
	cmdFlush
	cmdClose
	cmdShutdown
)

// command is one unit of work posted to a demux loop from outside it.
type command struct {
	op   cmdOp
	sess *session.Session
	conn api.Conn
	lis  api.Listener
}

// cmdRing is a bounded MPMC ring: many producers (application
// goroutines posting flushes and closes), one consumer (the loop).
// Sequence numbers per cell arbitrate slot ownership without locks.
type cmdRing struct {
	mask  uint64
	cells []cmdCell

	_    [56]byte
	head atomic.Uint64 // consumer position
	_    [56]byte
	tail atomic.Uint64 // producer position
}

type cmdCell struct {
	seq atomic.Uint64
	cmd command
}

func newCmdRing(capacity uint64) *cmdRing {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		panic("cmdRing capacity must be a power of two")
	}
	r := &cmdRing{mask: capacity - 1, cells: make([]cmdCell, capacity)}
	for i := range r.cells {
		r.cells[i].seq.Store(uint64(i))
	}
	return r
}

// enqueue claims a slot and stores cmd; false means the ring is full.
func (r *cmdRing) enqueue(cmd command) bool {
	for {
		pos := r.tail.Load()
		cell := &r.cells[pos&r.mask]
		seq := cell.seq.Load()
		switch {
		case seq == pos:
			if r.tail.CompareAndSwap(pos, pos+1) {
				cell.cmd = cmd
				cell.seq.Store(pos + 1)
				return true
			}
		case seq < pos:
			return false
		}
	}
}

// dequeue removes the oldest command; false means the ring is empty.
func (r *cmdRing) dequeue() (command, bool) {
	for {
		pos := r.head.Load()
		cell := &r.cells[pos&r.mask]
		seq := cell.seq.Load()
		switch {
		case seq == pos+1:
			if r.head.CompareAndSwap(pos, pos+1) {
				cmd := cell.cmd
				cell.cmd = command{}
				cell.seq.Store(pos + r.mask + 1)
				return cmd, true
			}
		case seq < pos+1:
			return command{}, false
		}
	}
}

// mailbox pairs the lock-free ring with a mutex-guarded overflow list
// so a posting goroutine never spins against a full ring. The loop
// drains the ring first, then the overflow; an overflowed registration
// that reorders past a flush is healed by the post-register queue check
// in the loop.
type mailbox struct {
	ring *cmdRing

	mu       sync.Mutex
	overflow []command
}

func newMailbox() *mailbox {
	return &mailbox{ring: newCmdRing(4096)}
}

func (m *mailbox) post(cmd command) {
	if m.ring.enqueue(cmd) {
		return
	}
	m.mu.Lock()
	m.overflow = append(m.overflow, cmd)
	m.mu.Unlock()
}

// drain applies every posted command to fn in post order per producer.
func (m *mailbox) drain(fn func(command)) {
	for {
		cmd, ok := m.ring.dequeue()
		if !ok {
			break
		}
		fn(cmd)
	}
	m.mu.Lock()
	ov := m.overflow
	m.overflow = nil
	m.mu.Unlock()
	for _, cmd := range ov {
		fn(cmd)
	}
}
