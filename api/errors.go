// File: api/errors.go
// Package api defines common error values shared across the runtime.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "errors"

// Errors surfaced by sessions and the demux loops.
var (
	// ErrSessionClosing is returned for writes submitted after a close
	// was requested but before it completed.
	ErrSessionClosing = errors.New("dirmux: session is closing")

	// ErrSessionClosed is returned for writes submitted on a fully
	// closed session.
	ErrSessionClosed = errors.New("dirmux: session is closed")

	// ErrWriteDropped marks a write request abandoned by the close
	// protocol before it reached the transport.
	ErrWriteDropped = errors.New("dirmux: write dropped by session close")

	// ErrWouldBlock is the portable stand-in for EAGAIN on a
	// non-blocking transport operation.
	ErrWouldBlock = errors.New("dirmux: operation would block")

	// ErrDemuxClosed is returned when a command is posted to a demux
	// loop that has already shut down.
	ErrDemuxClosed = errors.New("dirmux: demux loop is closed")

	// ErrFilterNotFound is returned by chain edits that name an entry
	// which is not present.
	ErrFilterNotFound = errors.New("dirmux: filter not found")

	// ErrFilterExists is returned by chain edits that would duplicate
	// an entry name.
	ErrFilterExists = errors.New("dirmux: filter name already in use")

	// ErrNotEncodable is returned when the chain tail receives a write
	// payload that is neither raw bytes nor an Encodable message.
	ErrNotEncodable = errors.New("dirmux: payload is not encodable")
)
