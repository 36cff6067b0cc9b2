// File: buffer/buffer.go
// Package buffer implements the fixed-capacity write buffer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package buffer

import "errors"

// ErrOverflow is returned when a put would exceed the buffer's
// capacity. The two-phase encode contract treats this as a programming
// error: a correctly sized buffer never overflows.
var ErrOverflow = errors.New("buffer: capacity exceeded")

// Buffer is a fixed-capacity byte region with a write position. Puts
// advance the position and fail atomically when the remaining capacity
// is too small: a failed put writes nothing.
type Buffer struct {
	data []byte
	pos  int
}

// New allocates a buffer with the given capacity.
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Wrap adopts b as the buffer's backing storage with position zero.
func Wrap(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Remaining returns the capacity left beyond the current position.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.pos
}

// Position returns the current write position.
func (b *Buffer) Position() int {
	return b.pos
}

// Len is an alias of Position for read-out symmetry with Bytes.
func (b *Buffer) Len() int {
	return b.pos
}

// PutByte appends one byte.
func (b *Buffer) PutByte(c byte) error {
	if b.Remaining() < 1 {
		return ErrOverflow
	}
	b.data[b.pos] = c
	b.pos++
	return nil
}

// Put appends p in full, or nothing.
func (b *Buffer) Put(p []byte) error {
	if b.Remaining() < len(p) {
		return ErrOverflow
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return nil
}

// Bytes returns the written region. The slice aliases the buffer's
// storage; the caller owns it only until the next mutation.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.pos]
}

// Reset rewinds the position without clearing storage.
func (b *Buffer) Reset() {
	b.pos = 0
}
