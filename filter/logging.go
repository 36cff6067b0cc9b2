// File: filter/logging.go
// Package filter implements the event logging filter.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package filter

import (
	"go.uber.org/zap"

	"github.com/momentics/dirmux/api"
)

// Logging reports chain traffic at debug level and exceptions at warn.
type Logging struct {
	log *zap.Logger
}

var _ api.Filter = (*Logging)(nil)

// NewLogging returns a logging filter writing to log.
func NewLogging(log *zap.Logger) *Logging {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logging{log: log}
}

func (l *Logging) OnMessageReceived(ctx api.FilterContext, msg any) {
	l.log.Debug("message received",
		zap.String("session", ctx.Session().ID()),
		zap.Any("message", msg))
	ctx.NextMessage(msg)
}

func (l *Logging) OnWriteRequested(ctx api.FilterContext, wr *api.WriteRequest) {
	l.log.Debug("write requested",
		zap.String("session", ctx.Session().ID()))
	ctx.NextWrite(wr)
}

func (l *Logging) OnCloseRequested(ctx api.FilterContext) {
	l.log.Debug("close requested",
		zap.String("session", ctx.Session().ID()))
	ctx.NextClose()
}

func (l *Logging) OnSessionClosed(ctx api.FilterContext) {
	l.log.Debug("session closed",
		zap.String("session", ctx.Session().ID()))
	ctx.NextClose()
}

func (l *Logging) OnExceptionCaught(ctx api.FilterContext, err error) {
	l.log.Warn("session exception",
		zap.String("session", ctx.Session().ID()),
		zap.Error(err))
	ctx.NextException(err)
}
