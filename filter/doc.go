// Package filter implements the per-session interceptor pipeline.
// Inbound events travel from the transport side towards the
// application; outbound writes and close requests travel the opposite
// way and terminate at the chain tail, which bridges into the
// session's write queue and close protocol.
//
// Structural edits copy the entry list, so in-flight dispatches finish
// on the snapshot they started with while new dispatches observe the
// edited chain; no event is delivered twice or skipped across an edit.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package filter
