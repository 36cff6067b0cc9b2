// File: message/errors.go
// Package message defines serialization error values.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package message

import "errors"

var (
	// ErrBufferTooSmall is returned when Encode is handed a buffer
	// whose remaining capacity is below the plan's total. Nothing is
	// written in that case; a partial message never reaches the wire.
	ErrBufferTooSmall = errors.New("message: destination buffer smaller than computed length")

	// ErrIncompleteFrame is returned by FrameLength when the input
	// does not yet contain a complete outer tag and length header, or
	// fewer bytes than the header declares.
	ErrIncompleteFrame = errors.New("message: incomplete frame")

	// ErrUnknownMessage is returned by Decode for an outer tag that is
	// not part of the protocol table.
	ErrUnknownMessage = errors.New("message: unknown message tag")
)
