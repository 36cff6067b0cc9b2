// File: ber/types.go
// Package ber defines tag and length constants.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ber

// Tag class constants (bits 7-8 of the tag byte).
const (
	ClassUniversal       = 0x00
	ClassApplication     = 0x40
	ClassContextSpecific = 0x80
	ClassPrivate         = 0xC0
)

// Constructed flag (bit 6 of the tag byte).
const (
	TypePrimitive   = 0x00
	TypeConstructed = 0x20
)

// Universal tag numbers used by the message model.
const (
	TagBoolean     = 0x01
	TagInteger     = 0x02
	TagOctetString = 0x04
	TagEnumerated  = 0x0A
	TagSequence    = 0x10
)

// Length encoding constants.
const (
	// LengthLongFormBit marks a long-form length header.
	LengthLongFormBit = 0x80

	// MaxShortFormLength is the largest length encodable in one byte.
	MaxShortFormLength = 127

	// maxLengthBytes bounds long-form headers to 4 payload-length
	// bytes; anything longer cannot describe an int on this side of
	// the wire.
	maxLengthBytes = 4
)
