// File: session/attachments.go
// Package session implements the per-session attachment store.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"sync"

	"github.com/momentics/dirmux/api"
)

// attachments is the thread-safe key/value slot upper layers use to
// hang protocol-session state off a transport session.
type attachments struct {
	mu    sync.RWMutex
	store map[string]any
}

var _ api.Attachments = (*attachments)(nil)

func newAttachments() *attachments {
	return &attachments{store: make(map[string]any)}
}

// Set stores a key/value pair.
func (a *attachments) Set(key string, value any) {
	a.mu.Lock()
	a.store[key] = value
	a.mu.Unlock()
}

// Get retrieves a value and its existence.
func (a *attachments) Get(key string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.store[key]
	return v, ok
}

// Delete removes a key.
func (a *attachments) Delete(key string) {
	a.mu.Lock()
	delete(a.store, key)
	a.mu.Unlock()
}

// Keys returns all present keys.
func (a *attachments) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.store))
	for k := range a.store {
		keys = append(keys, k)
	}
	return keys
}
