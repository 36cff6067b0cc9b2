// File: reactor/options.go
// Package reactor implements demux construction options.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"go.uber.org/zap"

	"github.com/momentics/dirmux/api"
	"github.com/momentics/dirmux/buffer"
	"github.com/momentics/dirmux/control"
	"github.com/momentics/dirmux/session"
)

const defaultReadBufferSize = 64 * 1024

// Option tunes a demux at construction.
type Option func(*options)

type options struct {
	log       *zap.Logger
	metrics   *control.MetricsRegistry
	registry  *session.Registry
	pool      *buffer.Pool
	readSize  int
	installer func(api.Session)
}

func defaultOptions() options {
	return options{
		log:      zap.NewNop(),
		metrics:  control.NewMetricsRegistry(),
		registry: session.NewRegistry(0),
		pool:     buffer.NewPool(32),
		readSize: defaultReadBufferSize,
	}
}

// WithLogger sets the loop logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithMetrics sets the counter registry the loop reports into.
func WithMetrics(m *control.MetricsRegistry) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithRegistry sets a shared session registry. Demuxes sharing one
// registry expose their live sessions through a single lookup surface.
func WithRegistry(r *session.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithBufferPool sets the read buffer pool.
func WithBufferPool(p *buffer.Pool) Option {
	return func(o *options) {
		if p != nil {
			o.pool = p
		}
	}
}

// WithReadBufferSize sets the per-read buffer size in bytes.
func WithReadBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readSize = n
		}
	}
}

// WithChainInstaller sets the hook that populates a new session's
// filter chain before any event reaches it.
func WithChainInstaller(fn func(api.Session)) Option {
	return func(o *options) { o.installer = fn }
}
