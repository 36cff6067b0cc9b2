// File: session/future.go
// Package session implements write/close completion promises.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"context"
	"sync"

	"github.com/momentics/dirmux/api"
)

// future is the single-settlement api.WritePromise implementation.
type future struct {
	done chan struct{}
	err  error
	once sync.Once
}

var _ api.WritePromise = (*future)(nil)

// NewPromise returns an unsettled promise.
func NewPromise() api.WritePromise {
	return &future{done: make(chan struct{})}
}

func failedFuture(err error) api.WriteFuture {
	f := &future{done: make(chan struct{})}
	f.Fail(err)
	return f
}

// Succeed settles the promise successfully. No-op after the first
// settlement.
func (f *future) Succeed() {
	f.once.Do(func() { close(f.done) })
}

// Fail settles the promise with err. No-op after the first settlement.
func (f *future) Fail(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done returns the completion channel.
func (f *future) Done() <-chan struct{} {
	return f.done
}

// Err returns the terminal error once settled, nil before.
func (f *future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Await blocks until settlement or context cancellation.
func (f *future) Await(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
