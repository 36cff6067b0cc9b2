// Package control holds the runtime control plane: a dynamic
// configuration store with hot-reload listeners and the metrics
// registry the demux loops report into.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package control
