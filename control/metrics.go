// File: control/metrics.go
// Package control implements the runtime metrics registry.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"sync"
	"time"
)

// Counter names reported by the transport runtime.
const (
	MetricSessionsAccepted = "sessions_accepted"
	MetricSessionsClosed   = "sessions_closed"
	MetricBytesRead        = "bytes_read"
	MetricBytesFlushed     = "bytes_flushed"
	MetricFlushNotifies    = "flush_notifies"
	MetricDecodeErrors     = "decode_errors"
)

// MetricsRegistry holds named counters with dynamic registration.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]int64
	updated  time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{counters: make(map[string]int64)}
}

// Add increments a counter by delta.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	mr.mu.Lock()
	mr.counters[key] += delta
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Inc increments a counter by one.
func (mr *MetricsRegistry) Inc(key string) {
	mr.Add(key, 1)
}

// Get reads one counter.
func (mr *MetricsRegistry) Get(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.counters[key]
}

// Snapshot returns the current counters.
func (mr *MetricsRegistry) Snapshot() map[string]int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]int64, len(mr.counters))
	for k, v := range mr.counters {
		out[k] = v
	}
	return out
}

// Updated reports the last mutation time.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}
