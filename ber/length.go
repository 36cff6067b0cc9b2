// File: ber/length.go
// Package ber implements length header sizing and writing.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ber

import "github.com/momentics/dirmux/buffer"

// LengthNbBytes returns the number of bytes the length header for a
// payload of n bytes occupies: 1 for the short form (0..127), 1+k for
// the long form. Pure function; ComputeLength and Encode both rely on
// it producing identical answers.
func LengthNbBytes(n int) int {
	switch {
	case n < 0:
		// Callers validate before encoding; sizing a negative value
		// still answers deterministically.
		return 1
	case n <= MaxShortFormLength:
		return 1
	case n <= 0xFF:
		return 2
	case n <= 0xFFFF:
		return 3
	case n <= 0xFFFFFF:
		return 4
	default:
		return 5
	}
}

// TagNbBytes returns the size of a single-byte tag. The protocol's tag
// table stays within the short form, so this is constant; it exists so
// sizing arithmetic reads symmetrically with LengthNbBytes.
func TagNbBytes() int {
	return 1
}

// SizeTLV returns the full encoded size of one TLV with a payload of
// valueLen bytes: tag byte, length header, payload.
func SizeTLV(valueLen int) int {
	return TagNbBytes() + LengthNbBytes(valueLen) + valueLen
}

// AppendLength appends the minimal encoding of n as a length header.
func AppendLength(dst []byte, n int) ([]byte, error) {
	if n < 0 {
		return dst, ErrNegativeLength
	}
	if n <= MaxShortFormLength {
		return append(dst, byte(n)), nil
	}
	nb := LengthNbBytes(n) - 1
	if nb > maxLengthBytes {
		return dst, ErrLengthOverflow
	}
	dst = append(dst, byte(LengthLongFormBit|nb))
	for shift := (nb - 1) * 8; shift >= 0; shift -= 8 {
		dst = append(dst, byte(n>>uint(shift)))
	}
	return dst, nil
}

// PutLength writes the minimal encoding of n into buf.
func PutLength(buf *buffer.Buffer, n int) error {
	if n < 0 {
		return ErrNegativeLength
	}
	if n <= MaxShortFormLength {
		return buf.PutByte(byte(n))
	}
	nb := LengthNbBytes(n) - 1
	if nb > maxLengthBytes {
		return ErrLengthOverflow
	}
	if err := buf.PutByte(byte(LengthLongFormBit | nb)); err != nil {
		return err
	}
	for shift := (nb - 1) * 8; shift >= 0; shift -= 8 {
		if err := buf.PutByte(byte(n >> uint(shift))); err != nil {
			return err
		}
	}
	return nil
}

// PutTLV writes one complete primitive TLV into buf.
func PutTLV(buf *buffer.Buffer, tag byte, value []byte) error {
	if err := buf.PutByte(tag); err != nil {
		return err
	}
	if err := PutLength(buf, len(value)); err != nil {
		return err
	}
	return buf.Put(value)
}
