// File: control/config.go
// Package control implements the dynamic configuration store.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import "sync"

// ConfigStore is a dynamic key/value map with atomic snapshot and
// reload listener support. The daemon merges file configuration into
// it; components read snapshots and subscribe to changes.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes an empty store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{config: make(map[string]any)}
}

// Snapshot returns a copy of all config values.
func (cs *ConfigStore) Snapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// Get returns one value and its existence.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// Int reads an integer knob, falling back to def.
func (cs *ConfigStore) Int(key string, def int) int {
	if v, ok := cs.Get(key); ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return def
}

// Merge folds new values in and dispatches reload listeners.
func (cs *ConfigStore) Merge(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	listeners := append([]func(){}, cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		go fn()
	}
}

// OnReload registers a listener invoked after each Merge.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	cs.listeners = append(cs.listeners, fn)
	cs.mu.Unlock()
}
