// File: filter/base.go
// Package filter provides the pass-through filter adapter.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import "github.com/momentics/dirmux/api"

// PassThrough forwards every event unchanged. Embed it to implement
// only the callbacks a filter cares about.
type PassThrough struct{}

var _ api.Filter = PassThrough{}

func (PassThrough) OnMessageReceived(ctx api.FilterContext, msg any) {
	ctx.NextMessage(msg)
}

func (PassThrough) OnWriteRequested(ctx api.FilterContext, wr *api.WriteRequest) {
	ctx.NextWrite(wr)
}

func (PassThrough) OnCloseRequested(ctx api.FilterContext) {
	ctx.NextClose()
}

func (PassThrough) OnSessionClosed(ctx api.FilterContext) {
	ctx.NextClose()
}

func (PassThrough) OnExceptionCaught(ctx api.FilterContext, err error) {
	ctx.NextException(err)
}
