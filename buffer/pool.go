// File: buffer/pool.go
// Package buffer implements the size-bucketed read buffer pool.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import "sync"

// Pool recycles byte slices by power-of-two size class. Each class is a
// bounded channel so reuse stays capped; misses fall through to a fresh
// allocation and oversize returns are dropped for the GC.
type Pool struct {
	mu      sync.Mutex
	classes map[int]chan []byte
	perSize int
}

// minClass keeps tiny reads from fragmenting the pool into useless
// size classes.
const minClass = 512

// NewPool creates a pool holding up to perClass slices per size class.
func NewPool(perClass int) *Pool {
	if perClass <= 0 {
		perClass = 256
	}
	return &Pool{
		classes: make(map[int]chan []byte),
		perSize: perClass,
	}
}

// Get returns a slice with len(b) == size.
func (p *Pool) Get(size int) []byte {
	if size <= 0 {
		return nil
	}
	class := sizeClass(size)
	ch := p.class(class)
	select {
	case b := <-ch:
		return b[:size]
	default:
		return make([]byte, size, class)
	}
}

// Put returns b to its size class. Slices whose capacity is not an
// exact class (foreign allocations) are dropped.
func (p *Pool) Put(b []byte) {
	if cap(b) < minClass || cap(b) != sizeClass(cap(b)) {
		return
	}
	ch := p.class(cap(b))
	select {
	case ch <- b[:cap(b)]:
	default:
	}
}

func (p *Pool) class(size int) chan []byte {
	p.mu.Lock()
	ch, ok := p.classes[size]
	if !ok {
		ch = make(chan []byte, p.perSize)
		p.classes[size] = ch
	}
	p.mu.Unlock()
	return ch
}

// sizeClass rounds size up to the next power of two, floored at
// minClass.
func sizeClass(size int) int {
	c := minClass
	for c < size {
		c <<= 1
	}
	return c
}
