// File: ber/errors.go
// Package ber defines codec error values.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ber

import (
	"errors"
	"fmt"
)

// Encoder errors. A negative or oversized length is always a contract
// violation by the caller, never recoverable.
var (
	ErrNegativeLength = errors.New("ber: negative length not allowed")
	ErrLengthOverflow = errors.New("ber: length value overflow")
)

// Decoder errors.
var (
	// ErrUnexpectedEOF is returned when input is truncated before a
	// declared length boundary.
	ErrUnexpectedEOF = errors.New("ber: unexpected end of data")

	// ErrInvalidLength is returned for malformed length headers.
	ErrInvalidLength = errors.New("ber: invalid length encoding")

	// ErrIndefiniteLength is returned for the indefinite form, which
	// the protocol does not use.
	ErrIndefiniteLength = errors.New("ber: indefinite length not supported")

	// ErrTagMismatch is returned when the next tag byte is not the
	// expected one.
	ErrTagMismatch = errors.New("ber: tag mismatch")
)

// DecodeError carries the input offset where decoding failed.
type DecodeError struct {
	Offset  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ber: decode error at offset %d: %s: %v", e.Offset, e.Message, e.Err)
	}
	return fmt.Sprintf("ber: decode error at offset %d: %s", e.Offset, e.Message)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(offset int, message string, err error) *DecodeError {
	return &DecodeError{Offset: offset, Message: message, Err: err}
}
