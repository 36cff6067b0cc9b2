// Package reactor implements the readiness-driven demux loops that own
// all transport I/O: accepting stream connections, associating
// datagram peers, reading into session filter chains and flushing
// write queues up to the socket's momentary capacity.
//
// Each demux loop owns a disjoint set of sessions; a session is never
// processed by two loops. Application goroutines interact with a loop
// only through posted commands (flush notifies, closes, registrations)
// and a poller wakeup, so enqueueing a write or editing a chain never
// blocks on the loop.
//
// A failure while servicing one session is delivered to that session's
// chain as an exception event and never stops the loop.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package reactor
