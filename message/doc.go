// Package message holds the typed protocol message model and its
// two-phase serialization: ComputeLength walks the message bottom-up
// and returns an explicit length plan, Encode writes top-down using
// only the plan's numbers. Separating measurement from writing lets the
// caller allocate exactly one correctly sized buffer and keeps the
// encode path free of capacity branches.
//
// The plan is a value, not message state: the message must not be
// mutated between computing a plan and encoding with it, and a plan
// must never be reused across mutations.
//
// Tag byte values are protocol constants (see tags.go), configuration
// data rather than logic.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package message
