// File: ber/integer.go
// Package ber implements minimal two's-complement integer encoding.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ber

import "github.com/momentics/dirmux/buffer"

// IntNbBytes returns the minimal number of content octets for v
// encoded as a BER INTEGER or ENUMERATED.
func IntNbBytes(v int64) int {
	n := 1
	for v > 0x7F || v < -0x80 {
		v >>= 8
		n++
	}
	return n
}

// PutTaggedInt writes a complete tagged integer TLV into buf.
func PutTaggedInt(buf *buffer.Buffer, tag byte, v int64) error {
	nb := IntNbBytes(v)
	if err := buf.PutByte(tag); err != nil {
		return err
	}
	if err := PutLength(buf, nb); err != nil {
		return err
	}
	for shift := (nb - 1) * 8; shift >= 0; shift -= 8 {
		if err := buf.PutByte(byte(v >> uint(shift))); err != nil {
			return err
		}
	}
	return nil
}

// ReadTaggedInt consumes a tagged integer TLV and returns its value.
func (d *Decoder) ReadTaggedInt(tag byte) (int64, error) {
	at := d.Offset()
	v, err := d.ReadTLV(tag)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 || len(v) > 8 {
		return 0, decodeErr(at, "integer content length", ErrInvalidLength)
	}
	n := int64(int8(v[0])) // sign-extend from the first octet
	for _, b := range v[1:] {
		n = n<<8 | int64(b)
	}
	return n, nil
}
