// File: message/compare_request.go
// Package message implements the compare request message.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package message

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/momentics/dirmux/ber"
	"github.com/momentics/dirmux/buffer"
)

// CompareRequest asks whether an entry holds an attribute with a given
// value. Wire layout:
//
//	TagCompareRequest L1
//	  TagString   L2 entry
//	  TagSequence L3
//	    TagString L4 attributeDesc
//	    TagString L5 assertionValue
type CompareRequest struct {
	Entry          string
	AttributeDesc  string
	AssertionValue []byte
}

// CompareRequestPlan is the length plan for one encode attempt:
// bottom-up sizes of each nested structure plus the outer total. It is
// valid only for the message value it was computed from.
type CompareRequestPlan struct {
	// AvaLen is the payload length of the assertion SEQUENCE.
	AvaLen int

	// RequestLen is the payload length of the outer request wrapper.
	RequestLen int

	// Total is the complete frame size including the outer tag and
	// length header.
	Total int
}

// ComputeLength sizes the message bottom-up. The arithmetic is shared
// with Encode through the ber sizing functions, so the declared
// headers always match the bytes written.
func (m *CompareRequest) ComputeLength() CompareRequestPlan {
	var p CompareRequestPlan

	p.AvaLen = ber.SizeTLV(len(m.AttributeDesc)) + ber.SizeTLV(len(m.AssertionValue))
	p.RequestLen = ber.SizeTLV(len(m.Entry)) +
		ber.TagNbBytes() + ber.LengthNbBytes(p.AvaLen) + p.AvaLen
	p.Total = ber.TagNbBytes() + ber.LengthNbBytes(p.RequestLen) + p.RequestLen
	return p
}

// EncodeInto writes the message top-down using only the plan's
// numbers. The capacity check happens once, up front: a buffer smaller
// than plan.Total fails with ErrBufferTooSmall before any byte is
// written.
func (m *CompareRequest) EncodeInto(buf *buffer.Buffer, plan CompareRequestPlan) error {
	if buf.Remaining() < plan.Total {
		return ErrBufferTooSmall
	}

	if err := buf.PutByte(TagCompareRequest); err != nil {
		return err
	}
	if err := ber.PutLength(buf, plan.RequestLen); err != nil {
		return err
	}

	if err := ber.PutTLV(buf, TagString, []byte(m.Entry)); err != nil {
		return err
	}

	if err := buf.PutByte(TagSequence); err != nil {
		return err
	}
	if err := ber.PutLength(buf, plan.AvaLen); err != nil {
		return err
	}
	if err := ber.PutTLV(buf, TagString, []byte(m.AttributeDesc)); err != nil {
		return err
	}
	return ber.PutTLV(buf, TagString, m.AssertionValue)
}

// Encode runs both phases against a buffer of exactly the computed
// size. Satisfies api.Encodable.
func (m *CompareRequest) Encode() ([]byte, error) {
	plan := m.ComputeLength()
	buf := buffer.New(plan.Total)
	if err := m.EncodeInto(buf, plan); err != nil {
		return nil, errors.Wrap(err, "compare request")
	}
	return buf.Bytes(), nil
}

// DecodeCompareRequest parses one complete frame. Nested fields are
// read inside sub-regions bounded by their declared lengths, so a lying
// header cannot pull bytes from an enclosing structure.
func DecodeCompareRequest(data []byte) (*CompareRequest, error) {
	d := ber.NewDecoder(data)
	if err := d.ExpectTag(TagCompareRequest); err != nil {
		return nil, err
	}
	n, err := d.ReadLength()
	if err != nil {
		return nil, err
	}
	body, err := d.Sub(n)
	if err != nil {
		return nil, err
	}

	var m CompareRequest
	entry, err := body.ReadTLV(TagString)
	if err != nil {
		return nil, errors.Wrap(err, "compare request entry")
	}
	m.Entry = string(entry)

	if err := body.ExpectTag(TagSequence); err != nil {
		return nil, errors.Wrap(err, "compare request assertion")
	}
	avaLen, err := body.ReadLength()
	if err != nil {
		return nil, err
	}
	ava, err := body.Sub(avaLen)
	if err != nil {
		return nil, err
	}

	desc, err := ava.ReadTLV(TagString)
	if err != nil {
		return nil, errors.Wrap(err, "attribute description")
	}
	m.AttributeDesc = string(desc)

	value, err := ava.ReadTLV(TagString)
	if err != nil {
		return nil, errors.Wrap(err, "assertion value")
	}
	m.AssertionValue = append([]byte(nil), value...)
	return &m, nil
}

// String renders the request for logs.
func (m *CompareRequest) String() string {
	return fmt.Sprintf("compare entry=%q desc=%q value=%q", m.Entry, m.AttributeDesc, m.AssertionValue)
}
