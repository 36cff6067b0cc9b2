// Package api defines the contract surface of the dirmux transport runtime:
// sessions, filter chains, write futures, traffic masks and the shared
// error taxonomy. Implementations live in the session, filter and reactor
// packages; this package carries no behavior of its own.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package api
