// File: message/compare_response.go
// Package message implements the compare response message.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package message

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/momentics/dirmux/ber"
	"github.com/momentics/dirmux/buffer"
)

// CompareResponse answers a CompareRequest. Wire layout:
//
//	TagCompareResponse L1
//	  TagEnum   L2 resultCode
//	  TagString L3 matchedDN
//	  TagString L4 diagnostic
type CompareResponse struct {
	ResultCode int
	MatchedDN  string
	Diagnostic string
}

// CompareResponsePlan is the length plan for one encode attempt.
type CompareResponsePlan struct {
	// CodeLen is the content length of the result code octets.
	CodeLen int

	// ResponseLen is the payload length of the outer wrapper.
	ResponseLen int

	// Total is the complete frame size.
	Total int
}

// ComputeLength sizes the response bottom-up.
func (m *CompareResponse) ComputeLength() CompareResponsePlan {
	var p CompareResponsePlan
	p.CodeLen = ber.IntNbBytes(int64(m.ResultCode))
	p.ResponseLen = ber.TagNbBytes() + ber.LengthNbBytes(p.CodeLen) + p.CodeLen +
		ber.SizeTLV(len(m.MatchedDN)) +
		ber.SizeTLV(len(m.Diagnostic))
	p.Total = ber.TagNbBytes() + ber.LengthNbBytes(p.ResponseLen) + p.ResponseLen
	return p
}

// EncodeInto writes the response using only the plan's numbers.
func (m *CompareResponse) EncodeInto(buf *buffer.Buffer, plan CompareResponsePlan) error {
	if buf.Remaining() < plan.Total {
		return ErrBufferTooSmall
	}

	if err := buf.PutByte(TagCompareResponse); err != nil {
		return err
	}
	if err := ber.PutLength(buf, plan.ResponseLen); err != nil {
		return err
	}
	if err := ber.PutTaggedInt(buf, TagEnum, int64(m.ResultCode)); err != nil {
		return err
	}
	if err := ber.PutTLV(buf, TagString, []byte(m.MatchedDN)); err != nil {
		return err
	}
	return ber.PutTLV(buf, TagString, []byte(m.Diagnostic))
}

// Encode runs both phases against an exactly sized buffer. Satisfies
// api.Encodable.
func (m *CompareResponse) Encode() ([]byte, error) {
	plan := m.ComputeLength()
	buf := buffer.New(plan.Total)
	if err := m.EncodeInto(buf, plan); err != nil {
		return nil, errors.Wrap(err, "compare response")
	}
	return buf.Bytes(), nil
}

// DecodeCompareResponse parses one complete frame.
func DecodeCompareResponse(data []byte) (*CompareResponse, error) {
	d := ber.NewDecoder(data)
	if err := d.ExpectTag(TagCompareResponse); err != nil {
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

	var m CompareResponse
	code, err := body.ReadTaggedInt(TagEnum)
	if err != nil {
		return nil, errors.Wrap(err, "result code")
	}
	m.ResultCode = int(code)

	matched, err := body.ReadTLV(TagString)
	if err != nil {
		return nil, errors.Wrap(err, "matched dn")
	}
	m.MatchedDN = string(matched)

	diag, err := body.ReadTLV(TagString)
	if err != nil {
		return nil, errors.Wrap(err, "diagnostic")
	}
	m.Diagnostic = string(diag)
	return &m, nil
}

// String renders the response for logs.
func (m *CompareResponse) String() string {
	return fmt.Sprintf("compare result=%d matched=%q", m.ResultCode, m.MatchedDN)
}
