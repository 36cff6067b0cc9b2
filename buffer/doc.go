// Package buffer provides the position-tracked byte buffer used on both
// the read and the encode paths, plus a size-bucketed pool for per-read
// scratch buffers. A buffer is owned exclusively by whichever component
// currently processes it.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package buffer
