// Package session implements the stateful connection handle: lifecycle
// state machine, write request queue with edge-triggered flush
// notification, traffic mask, attachment storage and the sharded
// session registry.
//
// A session is owned by exactly one demux loop for I/O, while Write,
// Close, traffic mask changes and chain edits may arrive from any
// goroutine; the write queue lock and atomic flags are the only shared
// synchronization points.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package session
