// Package ber implements the tag-length-value primitives of ASN.1 BER
// (ITU-T X.690) needed by the protocol message model: minimal-byte
// length headers, tag and TLV sizing, and a bounds-checked decoder.
//
// The sizing functions are pure and are the single source of truth for
// both serialization phases: the lengths a message declares during
// ComputeLength are produced by the same arithmetic Encode later uses
// to write them, so a declared header always matches the bytes that
// follow.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ber
