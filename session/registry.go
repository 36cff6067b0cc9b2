// File: session/registry.go
// Package session implements the sharded session registry.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package session

import (
	"hash/fnv"
	"sync"

	"github.com/momentics/dirmux/api"
)

// Registry maps session identity to the live session handle. It is an
// explicitly constructed, injected dependency: handlers receive it
// rather than reaching for a process-global lookup.
type Registry struct {
	shards []*regShard
	mask   uint32
}

type regShard struct {
	mu       sync.RWMutex
	sessions map[string]api.Session
}

// NewRegistry constructs a registry with shardCount shards, rounded up
// to a power of two.
func NewRegistry(shardCount int) *Registry {
	if shardCount <= 0 {
		shardCount = 16
	}
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*regShard, m)
	for i := range shards {
		shards[i] = &regShard{sessions: make(map[string]api.Session)}
	}
	return &Registry{shards: shards, mask: m - 1}
}

func (r *Registry) shard(id string) *regShard {
	return r.shards[fnv32(id)&r.mask]
}

// Put records a session under its ID.
func (r *Registry) Put(s api.Session) {
	sh := r.shard(s.ID())
	sh.mu.Lock()
	sh.sessions[s.ID()] = s
	sh.mu.Unlock()
}

// Get fetches a session if present.
func (r *Registry) Get(id string) (api.Session, bool) {
	sh := r.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	return s, ok
}

// Remove drops a session by ID.
func (r *Registry) Remove(id string) {
	sh := r.shard(id)
	sh.mu.Lock()
	delete(sh.sessions, id)
	sh.mu.Unlock()
}

// Range applies fn to every registered session.
func (r *Registry) Range(fn func(api.Session)) {
	for _, sh := range r.shards {
		sh.mu.RLock()
		for _, s := range sh.sessions {
			fn(s)
		}
		sh.mu.RUnlock()
	}
}

// Len counts registered sessions.
func (r *Registry) Len() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
