// File: reactor/epoll_linux.go
// Package reactor implements the epoll-backed poller.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build linux

package reactor

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/dirmux/api"
)

// epollPoller is the Linux api.Poller. A non-blocking pipe is
// registered alongside the sockets so Wakeup can interrupt Wait from
// any goroutine.
type epollPoller struct {
	epfd  int
	wakeR int
	wakeW int

	mu   sync.Mutex
	sys  []unix.EpollEvent
	dead bool
}

var _ api.Poller = (*epollPoller)(nil)

// NewPoller creates an epoll instance with its wakeup pipe armed.
func NewPoller() (api.Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "epoll_create1")
	}
	var pipe [2]int
	if err := unix.Pipe2(pipe[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		_ = unix.Close(epfd)
		return nil, errors.Wrap(err, "pipe2")
	}
	p := &epollPoller{epfd: epfd, wakeR: pipe[0], wakeW: pipe[1]}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(p.wakeR)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, p.wakeR, &ev); err != nil {
		_ = p.Close()
		return nil, errors.Wrap(err, "arm wakeup pipe")
	}
	return p, nil
}

func interest(write bool) uint32 {
	ev := uint32(unix.EPOLLIN | unix.EPOLLRDHUP)
	if write {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (p *epollPoller) Register(fd int, write bool) error {
	ev := unix.EpollEvent{Events: interest(write), Fd: int32(fd)}
	return errors.Wrap(unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev), "epoll add")
}

func (p *epollPoller) Modify(fd int, write bool) error {
	ev := unix.EpollEvent{Events: interest(write), Fd: int32(fd)}
	return errors.Wrap(unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev), "epoll mod")
}

func (p *epollPoller) Unregister(fd int) error {
	return errors.Wrap(unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil), "epoll del")
}

// Wait blocks for readiness, translating kernel events into the
// portable flag set. The wakeup pipe is drained in place and never
// surfaces as an event; an interrupted wait returns zero events rather
// than an error.
func (p *epollPoller) Wait(events []api.Event, timeoutMs int) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	p.mu.Lock()
	if cap(p.sys) < len(events) {
		p.sys = make([]unix.EpollEvent, len(events))
	}
	sys := p.sys[:len(events)]
	p.mu.Unlock()

	n, err := unix.EpollWait(p.epfd, sys, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, errors.Wrap(err, "epoll_wait")
	}

	out := 0
	for i := 0; i < n; i++ {
		se := sys[i]
		if int(se.Fd) == p.wakeR {
			p.drainWakeups()
			continue
		}
		var flags api.EventFlags
		if se.Events&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP) != 0 {
			flags |= api.EventReadable
		}
		if se.Events&unix.EPOLLOUT != 0 {
			flags |= api.EventWritable
		}
		if se.Events&unix.EPOLLERR != 0 {
			flags |= api.EventError
		}
		events[out] = api.Event{FD: int(se.Fd), Flags: flags}
		out++
	}
	return out, nil
}

func (p *epollPoller) drainWakeups() {
	var buf [64]byte
	for {
		n, err := unix.Read(p.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Wakeup interrupts a concurrent Wait. A full pipe means a wakeup is
// already pending, which is all the signal needed.
func (p *epollPoller) Wakeup() error {
	one := [1]byte{1}
	_, err := unix.Write(p.wakeW, one[:])
	if err == unix.EAGAIN {
		return nil
	}
	return errors.Wrap(err, "wakeup write")
}

func (p *epollPoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dead {
		return nil
	}
	p.dead = true
	_ = unix.Close(p.wakeR)
	_ = unix.Close(p.wakeW)
	return errors.Wrap(unix.Close(p.epfd), "close epoll")
}
