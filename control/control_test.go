// File: control/control_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"testing"
	"time"
)

func TestConfigStoreMergeAndGet(t *testing.T) {
	cs := NewConfigStore()
	cs.Merge(map[string]any{"read_buffer_size": 4096, "name": "dirmux"})

	if got := cs.Int("read_buffer_size", 1); got != 4096 {
		t.Fatalf("int = %d, want 4096", got)
	}
	if got := cs.Int("missing", 7); got != 7 {
		t.Fatalf("default = %d, want 7", got)
	}
	if got := cs.Int("name", 7); got != 7 {
		t.Fatalf("type mismatch should fall back, got %d", got)
	}
	v, ok := cs.Get("name")
	if !ok || v != "dirmux" {
		t.Fatalf("get = %v %v", v, ok)
	}

	snap := cs.Snapshot()
	snap["name"] = "mutated"
	if v, _ := cs.Get("name"); v != "dirmux" {
		t.Fatal("snapshot aliases the store")
	}
}

func TestConfigStoreReloadListener(t *testing.T) {
	cs := NewConfigStore()
	fired := make(chan struct{}, 2)
	cs.OnReload(func() { fired <- struct{}{} })

	cs.Merge(map[string]any{"a": 1})
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("reload listener never fired")
	}

	cs.Merge(map[string]any{"a": 2})
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("listener not fired on second merge")
	}
}

func TestMetricsRegistry(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.Inc(MetricSessionsAccepted)
	mr.Add(MetricBytesRead, 128)
	mr.Add(MetricBytesRead, 64)

	if got := mr.Get(MetricSessionsAccepted); got != 1 {
		t.Fatalf("accepted = %d", got)
	}
	if got := mr.Get(MetricBytesRead); got != 192 {
		t.Fatalf("bytes = %d", got)
	}
	if got := mr.Get("unknown"); got != 0 {
		t.Fatalf("unknown = %d", got)
	}

	snap := mr.Snapshot()
	if snap[MetricBytesRead] != 192 || len(snap) != 2 {
		t.Fatalf("snapshot = %v", snap)
	}
	if mr.Updated().IsZero() {
		t.Fatal("updated never set")
	}
}
