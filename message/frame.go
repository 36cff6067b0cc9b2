// File: message/frame.go
// Package message implements stream framing over accumulated bytes.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package message

import "github.com/momentics/dirmux/ber"

// FrameLength inspects the start of data and returns the total byte
// count of the first complete frame (outer tag, length header,
// payload). It returns ErrIncompleteFrame while more bytes are needed
// and a DecodeError for input that can never become a valid frame.
func FrameLength(data []byte) (int, error) {
	d := ber.NewDecoder(data)
	if _, err := d.ReadTag(); err != nil {
		return 0, ErrIncompleteFrame
	}
	n, err := d.ReadLength()
	if err != nil {
		// A truncated length header grows into a valid one with more
		// bytes; malformed forms never do.
		if de, ok := err.(*ber.DecodeError); ok && de.Unwrap() == ber.ErrUnexpectedEOF {
			return 0, ErrIncompleteFrame
		}
		return 0, err
	}
	total := d.Offset() + n
	if len(data) < total {
		return 0, ErrIncompleteFrame
	}
	return total, nil
}

// Decode parses the first complete frame by its outer tag.
func Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, ErrIncompleteFrame
	}
	switch data[0] {
	case TagCompareRequest:
		return DecodeCompareRequest(data)
	case TagCompareResponse:
		return DecodeCompareResponse(data)
	default:
		return nil, ErrUnknownMessage
	}
}
