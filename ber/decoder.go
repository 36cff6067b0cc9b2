// File: ber/decoder.go
// Package ber implements the bounds-checked TLV reader.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package ber

// Decoder consumes TLV structures from a byte slice. Every read is
// bounds-checked against the slice and, through Sub, against the
// declared length of the enclosing structure; a declared length that
// would read past either boundary fails with a DecodeError.
type Decoder struct {
	data []byte
	off  int
	base int // absolute offset of data[0], for error reporting in sub-regions
}

// NewDecoder wraps data for decoding.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Remaining returns the undecoded byte count.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.off
}

// Offset returns the absolute offset of the next read.
func (d *Decoder) Offset() int {
	return d.base + d.off
}

// ReadTag consumes one tag byte.
func (d *Decoder) ReadTag() (byte, error) {
	if d.Remaining() < 1 {
		return 0, decodeErr(d.Offset(), "reading tag", ErrUnexpectedEOF)
	}
	t := d.data[d.off]
	d.off++
	return t, nil
}

// ExpectTag consumes one tag byte and verifies it equals tag.
func (d *Decoder) ExpectTag(tag byte) error {
	at := d.Offset()
	t, err := d.ReadTag()
	if err != nil {
		return err
	}
	if t != tag {
		return decodeErr(at, "unexpected tag", ErrTagMismatch)
	}
	return nil
}

// ReadLength consumes a length header and returns the declared payload
// length. The indefinite form and headers longer than four length
// bytes are rejected.
func (d *Decoder) ReadLength() (int, error) {
	at := d.Offset()
	if d.Remaining() < 1 {
		return 0, decodeErr(at, "reading length", ErrUnexpectedEOF)
	}
	first := d.data[d.off]
	d.off++
	if first&LengthLongFormBit == 0 {
		return int(first), nil
	}
	nb := int(first & 0x7F)
	if nb == 0 {
		return 0, decodeErr(at, "indefinite form", ErrIndefiniteLength)
	}
	if nb > maxLengthBytes {
		return 0, decodeErr(at, "length header too wide", ErrInvalidLength)
	}
	if d.Remaining() < nb {
		return 0, decodeErr(at, "truncated length header", ErrUnexpectedEOF)
	}
	n := 0
	for i := 0; i < nb; i++ {
		n = n<<8 | int(d.data[d.off])
		d.off++
	}
	if n < 0 {
		return 0, decodeErr(at, "length does not fit", ErrLengthOverflow)
	}
	return n, nil
}

// ReadValue consumes exactly n payload bytes. The returned slice
// aliases the input.
func (d *Decoder) ReadValue(n int) ([]byte, error) {
	if n < 0 {
		return nil, decodeErr(d.Offset(), "negative value length", ErrInvalidLength)
	}
	if d.Remaining() < n {
		return nil, decodeErr(d.Offset(), "declared length past end of data", ErrUnexpectedEOF)
	}
	v := d.data[d.off : d.off+n]
	d.off += n
	return v, nil
}

// ReadTLV consumes one complete TLV, verifying the tag.
func (d *Decoder) ReadTLV(tag byte) ([]byte, error) {
	if err := d.ExpectTag(tag); err != nil {
		return nil, err
	}
	n, err := d.ReadLength()
	if err != nil {
		return nil, err
	}
	return d.ReadValue(n)
}

// Sub bounds a nested region of exactly n bytes: reads on the returned
// decoder cannot cross the enclosing structure's declared length.
func (d *Decoder) Sub(n int) (*Decoder, error) {
	at := d.Offset()
	v, err := d.ReadValue(n)
	if err != nil {
		return nil, err
	}
	return &Decoder{data: v, base: at}, nil
}
