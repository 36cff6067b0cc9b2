// File: fake/poller.go
// Package fake implements the scriptable test poller.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/momentics/dirmux/api"
)

var errNotRegistered = errors.New("fake: fd not registered")

// Poller is an api.Poller fed by the test: Inject queues readiness
// events that the next Wait returns. Wait blocks on a condition
// variable instead of a kernel, so loop tests stay deterministic.
type Poller struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []api.Event
	wakeups int
	closed  bool

	registered map[int]bool // fd -> write interest
}

var _ api.Poller = (*Poller)(nil)

// NewPoller returns an empty poller.
func NewPoller() *Poller {
	p := &Poller{registered: make(map[int]bool)}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Inject queues events for the next Wait and unblocks it.
func (p *Poller) Inject(evs ...api.Event) {
	p.mu.Lock()
	p.pending = append(p.pending, evs...)
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Registered reports whether fd is registered and with write interest.
func (p *Poller) Registered(fd int) (ok, write bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	write, ok = p.registered[fd]
	return ok, write
}

func (p *Poller) Register(fd int, write bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered[fd] = write
	return nil
}

func (p *Poller) Modify(fd int, write bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.registered[fd]; !ok {
		return errNotRegistered
	}
	p.registered[fd] = write
	return nil
}

func (p *Poller) Unregister(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.registered, fd)
	return nil
}

// Wait blocks until events are injected, Wakeup is called or the
// poller closes. A bare wakeup returns zero events, like an
// interrupted kernel wait.
func (p *Poller) Wait(events []api.Event, timeoutMs int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.pending) == 0 && p.wakeups == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return 0, api.ErrDemuxClosed
	}
	if p.wakeups > 0 {
		p.wakeups = 0
	}
	n := copy(events, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *Poller) Wakeup() error {
	p.mu.Lock()
	p.wakeups++
	p.mu.Unlock()
	p.cond.Broadcast()
	return nil
}

func (p *Poller) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	return nil
}
