// File: reactor/poller_stub.go
// Package reactor stubs platform constructors off Linux.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build !linux

package reactor

import (
	"github.com/pkg/errors"

	"github.com/momentics/dirmux/api"
)

var errUnsupported = errors.New("reactor: native poller requires linux")

// NewPoller is unavailable off Linux; tests use the fake poller.
func NewPoller() (api.Poller, error) {
	return nil, errUnsupported
}

// Listen is unavailable off Linux.
func Listen(network, addr string) (api.Listener, error) {
	return nil, errUnsupported
}

// Dial is unavailable off Linux.
func Dial(network, addr string) (api.Conn, error) {
	return nil, errUnsupported
}

// ListenPacket is unavailable off Linux.
func ListenPacket(network, addr string) (api.PacketConn, error) {
	return nil, errUnsupported
}
