// File: message/tags.go
// Package message defines the protocol tag constant table.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package message

import "github.com/momentics/dirmux/ber"

// Protocol tag bytes. The application-class numbers follow the
// directory protocol's operation table.
const (
	// TagCompareRequest is [APPLICATION 14] constructed.
	TagCompareRequest = ber.ClassApplication | ber.TypeConstructed | 14

	// TagCompareResponse is [APPLICATION 15] constructed.
	TagCompareResponse = ber.ClassApplication | ber.TypeConstructed | 15

	// TagSequence is the universal constructed SEQUENCE.
	TagSequence = ber.ClassUniversal | ber.TypeConstructed | ber.TagSequence

	// TagString is the universal OCTET STRING carrying DNs,
	// descriptions and assertion values.
	TagString = ber.ClassUniversal | ber.TypePrimitive | ber.TagOctetString

	// TagEnum is the universal ENUMERATED carrying result codes.
	TagEnum = ber.ClassUniversal | ber.TypePrimitive | ber.TagEnumerated
)

// Result codes carried by CompareResponse.
const (
	ResultSuccess      = 0
	ResultCompareFalse = 5
	ResultCompareTrue  = 6
)
