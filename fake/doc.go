// Package fake provides in-memory transport doubles for tests: a
// scriptable poller, stream connections with controllable capacity and
// a loopback packet socket. Everything here is driven explicitly by the
// test, never by the kernel.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package fake
