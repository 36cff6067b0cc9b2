// File: session/queue.go
// Package session implements the per-session write request queue.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/dirmux/api"
)

// WriteQueue is the ordered queue of pending outbound requests. All
// mutation happens under the queue's lock; Peek and Pop belong to the
// flush path, Enqueue to the chain tail.
type WriteQueue struct {
	mu   sync.Mutex
	ring *queue.Queue
}

// NewWriteQueue returns an empty queue.
func NewWriteQueue() *WriteQueue {
	return &WriteQueue{ring: queue.New()}
}

// Enqueue appends wr and reports whether the caller must schedule a
// flush: true only on the empty-to-non-empty transition while writable
// holds. Both the transition and the writable sample are taken under
// the same lock as the append; a write-enable racing the enqueue
// either hands the new mask to writable or observes the request via
// Len under this lock, so the notify is never lost on both sides.
func (q *WriteQueue) Enqueue(wr *api.WriteRequest, writable func() bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	wasEmpty := q.ring.Length() == 0
	q.ring.Add(wr)
	return wasEmpty && writable()
}

// Peek returns the head request without removing it.
func (q *WriteQueue) Peek() (*api.WriteRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ring.Length() == 0 {
		return nil, false
	}
	return q.ring.Peek().(*api.WriteRequest), true
}

// Pop removes and returns the head request.
func (q *WriteQueue) Pop() (*api.WriteRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ring.Length() == 0 {
		return nil, false
	}
	return q.ring.Remove().(*api.WriteRequest), true
}

// Len returns the number of pending requests.
func (q *WriteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ring.Length()
}

// Drain removes and returns every pending request; the close protocol
// uses it to fail what was never flushed.
func (q *WriteQueue) Drain() []*api.WriteRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*api.WriteRequest, 0, q.ring.Length())
	for q.ring.Length() > 0 {
		out = append(out, q.ring.Remove().(*api.WriteRequest))
	}
	return out
}
