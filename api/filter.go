// File: api/filter.go
// Package api defines the filter chain contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Filter intercepts session events. A filter may forward an event
// unchanged, transform its payload before forwarding, stop propagation,
// or inject new events (a codec filter injects zero or more decoded
// messages per raw read).
//
// Inbound events (message, exception, close) travel from the transport
// side towards the application; outbound events (write, close requests)
// travel the opposite way and terminate at the chain tail, which
// performs the real enqueue or the real close.
type Filter interface {
	// OnMessageReceived handles an inbound message (raw bytes from the
	// demux or a decoded message injected by an upstream filter).
	OnMessageReceived(ctx FilterContext, msg any)

	// OnWriteRequested handles an outbound write on its way to the
	// session's write queue.
	OnWriteRequested(ctx FilterContext, wr *WriteRequest)

	// OnCloseRequested handles an outbound close request on its way to
	// the close protocol; a filter may delay or veto it by not
	// forwarding.
	OnCloseRequested(ctx FilterContext)

	// OnSessionClosed handles the inbound notification that the
	// session finished closing. Fired once, after OnCloseRequested's
	// traversal has run the protocol to completion.
	OnSessionClosed(ctx FilterContext)

	// OnExceptionCaught handles a per-session error event.
	OnExceptionCaught(ctx FilterContext, err error)
}

// FilterContext is handed to a filter during dispatch. Next* forwards
// the event to the following position in the traversal snapshot; not
// calling any Next method short-circuits the event.
type FilterContext interface {
	// Session returns the session this chain is bound to.
	Session() Session

	// NextMessage forwards an inbound message downstream.
	NextMessage(msg any)

	// NextWrite forwards an outbound write towards the tail.
	NextWrite(wr *WriteRequest)

	// NextClose forwards the event to the next position.
	NextClose()

	// NextException forwards an error event downstream.
	NextException(err error)
}

// FilterChain is the ordered, named interceptor pipeline bound to one
// session for its lifetime. Structural edits are serialized against
// each other and safe to perform concurrently with event dispatch:
// in-flight dispatches complete on the snapshot taken at dispatch
// start, new dispatches see the edited chain.
type FilterChain interface {
	// AddFirst inserts a filter closest to the transport.
	AddFirst(name string, f Filter) error

	// AddLast inserts a filter closest to the application.
	AddLast(name string, f Filter) error

	// AddBefore inserts a filter before the named entry.
	AddBefore(mark, name string, f Filter) error

	// AddAfter inserts a filter after the named entry.
	AddAfter(mark, name string, f Filter) error

	// Remove detaches and returns the named filter.
	Remove(name string) (Filter, error)

	// Replace swaps the named entry's filter, returning the old one.
	Replace(name string, f Filter) (Filter, error)

	// Names lists entry names from transport side to application side.
	Names() []string

	// FireMessageReceived starts inbound dispatch of one message.
	// Delivery honors the session's read traffic flag: while read is
	// disabled, messages park in arrival order and are delivered
	// exactly once after re-enable.
	FireMessageReceived(msg any)

	// FireExceptionCaught starts inbound dispatch of an error event.
	FireExceptionCaught(err error)

	// FireSessionClosed starts inbound dispatch of the closed event.
	FireSessionClosed()

	// FireWriteRequested starts outbound dispatch of a write; the tail
	// bridges into the session's write queue.
	FireWriteRequested(wr *WriteRequest)

	// FireCloseRequested starts outbound dispatch of a close; the tail
	// bridges into the close protocol.
	FireCloseRequested()
}
